package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meypark-backend/config"
	"meypark-backend/internal/metrics"
	"meypark-backend/internal/model"
)

func upstreamServer(t *testing.T, fail *atomic.Bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/data", r.URL.Path)
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		snap := model.DefaultSnapshot(time.Now())
		snap.Stats.TotalIncome = 12.5
		snap.Zones["Z1"] = model.Zone{ID: "Z1", Name: "Centro"}
		require.NoError(t, json.NewEncoder(w).Encode(snap))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPoller_FetchOnceKeepsLastGoodSnapshot(t *testing.T) {
	var fail atomic.Bool
	srv := upstreamServer(t, &fail)
	m := metrics.New("relayd")
	p := NewPoller(&config.RelayConfig{UpstreamURL: srv.URL + "/api/data", Interval: time.Second}, WithMetrics(m))
	ctx := context.Background()

	_, ok := p.Latest()
	assert.False(t, ok)

	snap, err := p.FetchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12.5, snap.Stats.TotalIncome)

	fail.Store(true)
	_, err = p.FetchOnce(ctx)
	assert.Error(t, err)

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, "Centro", latest.Zones["Z1"].Name)
	assert.NotNil(t, latest.ActiveSessions)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `meypark_upstream_fetches_total{result="ok",service="relayd"} 1`)
	assert.Contains(t, rec.Body.String(), `meypark_upstream_fetches_total{result="failed",service="relayd"} 1`)
}

func TestPoller_InvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	p := NewPoller(&config.RelayConfig{UpstreamURL: srv.URL, Interval: time.Second})
	_, err := p.FetchOnce(context.Background())
	assert.Error(t, err)
	_, ok := p.Latest()
	assert.False(t, ok)
}

func TestPoller_RunTicksUntilCancelled(t *testing.T) {
	var fail atomic.Bool
	srv := upstreamServer(t, &fail)

	var ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(
		&config.RelayConfig{UpstreamURL: srv.URL + "/api/data", Interval: 10 * time.Millisecond},
		WithTick(func(context.Context) { ticks.Add(1) }),
	)

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
	_, ok := p.Latest()
	assert.True(t, ok)
}
