// Package upstream keeps a recent copy of the centralized backend's state.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"meypark-backend/config"
	"meypark-backend/internal/metrics"
	"meypark-backend/internal/model"
)

const snapshotKey = "snapshot"

// Poller fetches GET /api/data from the centralized backend on an interval and
// keeps the last good snapshot.
type Poller struct {
	url      string
	interval time.Duration
	client   *http.Client
	cache    *cache.Cache
	log      *zap.Logger
	metrics  *metrics.Metrics
	onTick   func(ctx context.Context)
}

type Option func(*Poller)

func WithLogger(log *zap.Logger) Option {
	return func(p *Poller) { p.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// WithTick registers a callback run after every fetch, successful or not.
func WithTick(fn func(ctx context.Context)) Option {
	return func(p *Poller) { p.onTick = fn }
}

// NewPoller creates a poller for the relay configuration.
func NewPoller(cfg *config.RelayConfig, opts ...Option) *Poller {
	p := &Poller{
		url:      cfg.UpstreamURL,
		interval: cfg.Interval,
		cache:    cache.New(cache.NoExpiration, 0),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			p.log.Warn("invalid proxy url, polling without proxy", zap.String("proxy", cfg.HTTPProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p.client = &http.Client{Transport: transport, Timeout: timeout}
	return p
}

// Latest returns the last snapshot fetched successfully.
func (p *Poller) Latest() (*model.Snapshot, bool) {
	v, ok := p.cache.Get(snapshotKey)
	if !ok {
		return nil, false
	}
	return v.(*model.Snapshot), true
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("starting upstream poller", zap.String("url", p.url), zap.Duration("interval", p.interval))
	p.tick(ctx)

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("upstream poller shutting down")
			return
		case <-timer.C:
			p.tick(ctx)
			timer.Reset(p.interval)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if _, err := p.FetchOnce(ctx); err != nil && ctx.Err() == nil {
		p.log.Warn("upstream fetch failed, keeping last snapshot", zap.Error(err))
	}
	if p.onTick != nil {
		p.onTick(ctx)
	}
}

// FetchOnce fetches the snapshot once. A failed fetch leaves the last good
// snapshot in place.
func (p *Poller) FetchOnce(ctx context.Context) (*model.Snapshot, error) {
	snap, err := p.fetch(ctx)
	if err != nil {
		p.metrics.UpstreamFetch(metrics.ResultFailed)
		return nil, err
	}
	p.metrics.UpstreamFetch(metrics.ResultOK)
	p.cache.Set(snapshotKey, snap, cache.NoExpiration)
	return snap, nil
}

func (p *Poller) fetch(ctx context.Context) (*model.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	snap.Normalize()
	return &snap, nil
}
