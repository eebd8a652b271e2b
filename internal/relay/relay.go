// Package relay fans kiosk screen, session and payment events out to the
// dashboards watching them.
package relay

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"

	"meypark-backend/internal/hub"
	"meypark-backend/internal/metrics"
	"meypark-backend/internal/model"
)

// Source provides the latest centralized backend snapshot.
type Source interface {
	Latest() (*model.Snapshot, bool)
}

// Broadcaster delivers messages to every open connection.
type Broadcaster interface {
	Broadcast(v any)
}

type session struct {
	plate string
	raw   json.RawMessage
}

// Relay is the kiosk relay's state: what the kiosk is doing right now, as
// reported by the kiosk itself.
type Relay struct {
	source  Source
	out     Broadcaster
	now     func() time.Time
	log     *zap.Logger
	metrics *metrics.Metrics

	mu            sync.Mutex
	status        string
	currentScreen string
	currentUser   json.RawMessage
	sessions      []session
	diagnostics   map[string]bool
	stats         model.Stats
	operators     json.RawMessage
}

type Option func(*Relay)

func WithLogger(log *zap.Logger) Option {
	return func(r *Relay) { r.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

func New(source Source, opts ...Option) *Relay {
	r := &Relay{
		source: source,
		now:    time.Now,
		log:    zap.NewNop(),
		status: string(model.MeterOnline),
		diagnostics: map[string]bool{
			"network": true, "printer": true, "display": true,
			"touch": true, "coins": true, "cards": true,
		},
		currentScreen: "login",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetBroadcaster wires the fan-out target once the hub exists.
func (r *Relay) SetBroadcaster(out Broadcaster) {
	r.out = out
}

func (r *Relay) broadcast(v any) {
	if r.out != nil {
		r.out.Broadcast(v)
	}
}

// snapshot is the upstream state, or an empty one before the first fetch.
func (r *Relay) snapshot() *model.Snapshot {
	if r.source != nil {
		if snap, ok := r.source.Latest(); ok {
			return snap
		}
	}
	return model.DefaultSnapshot(r.now())
}

// Stats are the kiosk counters. Entity counts come from upstream, sessions and
// income from what the kiosk reported here.
func (r *Relay) Stats() model.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statsLocked()
}

func (r *Relay) statsLocked() model.Stats {
	st := r.stats
	if r.source != nil {
		if snap, ok := r.source.Latest(); ok {
			st.TotalCompanies = snap.Stats.TotalCompanies
			st.TotalZones = snap.Stats.TotalZones
			st.TotalOperators = snap.Stats.TotalOperators
		}
	}
	st.ActiveSessions = len(r.sessions)
	return st
}

// Tick pushes the current counters to every connection.
func (r *Relay) Tick(context.Context) {
	r.broadcast(statsMessage{Type: "stats_update", Stats: r.Stats()})
}

func (r *Relay) OnConnect(_ context.Context, c *hub.Client) {
	r.log.Info("dashboard connected", zap.String("conn_id", c.ID()))
	snap := r.snapshot()
	c.Send(dataMessage{Type: "initial_data", Data: snap})
	c.Send(statsMessage{Type: "stats_update", Stats: snap.Stats})
}

func (r *Relay) OnDisconnect(_ context.Context, c *hub.Client) {
	r.log.Info("dashboard disconnected", zap.String("conn_id", c.ID()))
}

func (r *Relay) OnMessage(_ context.Context, c *hub.Client, raw []byte) {
	r.Handle(c, raw)
}

// Replier is the connection a message arrived on.
type Replier interface {
	Send(v any) bool
}

// Handle applies one message. Malformed and unknown messages are logged and dropped.
func (r *Relay) Handle(origin Replier, raw []byte) {
	var m inbound
	if err := json.Unmarshal(raw, &m); err != nil {
		r.metrics.Message("", metrics.ResultInvalid)
		r.log.Warn("malformed relay message", zap.Error(err))
		return
	}

	switch m.Type {
	case "get_data":
		origin.Send(dataMessage{Type: "full_data", Data: r.snapshot()})
	case "get_stats":
		origin.Send(statsMessage{Type: "stats_update", Stats: r.snapshot().Stats})
	case "kiosk_status":
		r.mu.Lock()
		r.status = m.Status
		r.mu.Unlock()
		r.broadcast(statusMessage{Type: "kiosk_status", Status: m.Status})
	case "screen_update":
		r.mu.Lock()
		r.currentScreen = m.Screen
		r.currentUser = m.User
		r.mu.Unlock()
		r.broadcast(screenMessage{Type: "kiosk_screen", Screen: screenView(m, r.now())})
	case "session_update":
		if !r.updateSession(m.Session) {
			r.metrics.Message(m.Type, metrics.ResultFailed)
			return
		}
		r.broadcast(sessionMessage{Type: "session_update", Session: m.Session})
	case "payment_update":
		if !r.addPayment(m.Payment) {
			r.metrics.Message(m.Type, metrics.ResultFailed)
			return
		}
		r.broadcast(paymentMessage{Type: "payment_update", Payment: m.Payment})
	case "diagnostics_update":
		r.mu.Lock()
		maps.Copy(r.diagnostics, m.Diagnostics)
		diagnostics := maps.Clone(r.diagnostics)
		r.mu.Unlock()
		r.broadcast(diagnosticsMessage{Type: "tech_diagnostics", Diagnostics: diagnostics})
	case "update_company", "update_zone", "update_ui":
		r.broadcast(dataMessage{Type: m.Type, Data: m.Data})
	case "update_operators":
		if len(m.Data) == 0 {
			r.metrics.Message(m.Type, metrics.ResultFailed)
			return
		}
		r.mu.Lock()
		r.operators = m.Data
		r.mu.Unlock()
		r.broadcast(operatorsMessage{
			Type:    "operators_updated",
			Message: "Operadores actualizados correctamente",
			Data:    m.Data,
		})
	default:
		r.metrics.Message(m.Type, metrics.ResultUnknown)
		r.log.Debug("ignoring relay message", zap.String("type", m.Type))
		return
	}
	r.metrics.Message(m.Type, metrics.ResultOK)
}

// updateSession upserts a session by plate, or removes it once ended.
func (r *Relay) updateSession(raw json.RawMessage) bool {
	var s struct {
		Plate  string `json:"plate"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &s); err != nil || s.Plate == "" {
		r.log.Warn("session update without plate", zap.ByteString("session", raw))
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	idx := -1
	for i, existing := range r.sessions {
		if existing.plate == s.Plate {
			idx = i
			break
		}
	}
	switch {
	case s.Status == string(model.SessionEnded):
		if idx >= 0 {
			r.sessions = append(r.sessions[:idx], r.sessions[idx+1:]...)
		}
	case idx >= 0:
		r.sessions[idx].raw = raw
	default:
		r.sessions = append(r.sessions, session{plate: s.Plate, raw: raw})
	}
	return true
}

func (r *Relay) addPayment(raw json.RawMessage) bool {
	var p struct {
		Amount float64 `json:"amount"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		r.log.Warn("invalid payment update", zap.Error(err))
		return false
	}
	r.mu.Lock()
	r.stats.TotalIncome += p.Amount
	r.stats.TodayIncome += p.Amount
	r.mu.Unlock()
	return true
}

// KioskState is the relay's view of the kiosk.
type KioskState struct {
	Status         string            `json:"status"`
	CurrentScreen  string            `json:"currentScreen"`
	CurrentUser    json.RawMessage   `json:"currentUser"`
	ActiveSessions []json.RawMessage `json:"activeSessions"`
	Diagnostics    map[string]bool   `json:"diagnostics"`
	Stats          model.Stats       `json:"stats"`
	Operators      json.RawMessage   `json:"operators,omitempty"`
}

func (r *Relay) Kiosk() KioskState {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions := make([]json.RawMessage, len(r.sessions))
	for i, s := range r.sessions {
		sessions[i] = s.raw
	}
	return KioskState{
		Status:         r.status,
		CurrentScreen:  r.currentScreen,
		CurrentUser:    orRaw(r.currentUser, "null"),
		ActiveSessions: sessions,
		Diagnostics:    maps.Clone(r.diagnostics),
		Stats:          r.statsLocked(),
		Operators:      r.operators,
	}
}
