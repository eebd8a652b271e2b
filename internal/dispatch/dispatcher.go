// Package dispatch routes realtime messages to state mutations and fans the
// results out to connected clients.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"meypark-backend/internal/hub"
	"meypark-backend/internal/metrics"
	"meypark-backend/internal/notification"
	"meypark-backend/internal/protocol"
	"meypark-backend/internal/state"
)

// Peer is the connection a message arrived on.
type Peer interface {
	Send(v any) bool
	Identity() string
	SetIdentity(id string)
}

// Broadcaster delivers messages to open connections.
type Broadcaster interface {
	Broadcast(v any)
	SendTo(identity string, v any) bool
	Bound(identity string) bool
}

// Alerter receives meter alerts. Notify must not block.
type Alerter interface {
	Notify(a notification.Alert)
}

// Dispatcher applies realtime and REST messages to the store.
type Dispatcher struct {
	store   *state.Store
	out     Broadcaster
	alerts  Alerter
	log     *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAlerter sets the receiver of meter alerts.
func WithAlerter(a Alerter) Option {
	return func(d *Dispatcher) { d.alerts = a }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New creates a Dispatcher over store. out may be nil until SetBroadcaster is called.
func New(store *state.Store, out Broadcaster, opts ...Option) *Dispatcher {
	d := &Dispatcher{store: store, out: out, log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetBroadcaster wires the fan-out target once the hub exists.
func (d *Dispatcher) SetBroadcaster(out Broadcaster) {
	d.out = out
}

// Handle decodes one frame from origin, applies it and sends the reply and
// broadcast it produced. It never returns an error: failures become replies.
func (d *Dispatcher) Handle(ctx context.Context, origin Peer, raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		var unknown *protocol.UnknownTypeError
		if errors.As(err, &unknown) {
			d.metrics.Message(unknown.Tag, metrics.ResultUnknown)
			origin.Send(protocol.ErrorNotice("Tipo de mensaje no reconocido: " + unknown.Tag))
			return
		}
		d.metrics.Message("", metrics.ResultInvalid)
		origin.Send(protocol.ErrorNotice(err.Error()))
		return
	}

	out := d.run(ctx, origin, msg)
	if out.Reply != nil {
		origin.Send(out.Reply)
	}
	if out.Broadcast != nil && d.out != nil {
		d.out.Broadcast(out.Broadcast)
	}
}

// Execute applies msg on behalf of a caller without a connection, such as the
// REST API. The broadcast is sent; the outcome is returned to the caller.
func (d *Dispatcher) Execute(ctx context.Context, msg protocol.Message) protocol.Outcome {
	out := d.run(ctx, nil, msg)
	if out.Broadcast != nil && d.out != nil {
		d.out.Broadcast(out.Broadcast)
	}
	return out
}

func (d *Dispatcher) run(ctx context.Context, origin Peer, msg protocol.Message) (out protocol.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("message handler panicked",
				zap.String("type", msg.Type()),
				zap.Any("panic", r),
				zap.Stack("stack"))
			d.metrics.Message(msg.Type(), metrics.ResultFailed)
			out = protocol.Outcome{Reply: protocol.ErrorNotice(fmt.Sprintf("Error procesando %s", msg.Type()))}
		}
	}()

	out = protocol.Dispatch(ctx, msg, &turn{d: d, origin: origin})
	result := metrics.ResultOK
	if r, ok := out.Reply.(protocol.Result); ok && !r.Success {
		result = metrics.ResultFailed
	}
	d.metrics.Message(msg.Type(), result)
	return out
}

func (d *Dispatcher) alert(a notification.Alert) {
	if d.alerts != nil {
		d.alerts.Notify(a)
	}
}

// OnConnect pushes the full state to a new connection.
func (d *Dispatcher) OnConnect(_ context.Context, c *hub.Client) {
	c.Send(protocol.NewFullData(d.store.Snapshot()))
}

func (d *Dispatcher) OnMessage(ctx context.Context, c *hub.Client, raw []byte) {
	d.Handle(ctx, c, raw)
}

// OnDisconnect marks the meter bound to the connection offline, if any.
func (d *Dispatcher) OnDisconnect(ctx context.Context, c *hub.Client) {
	d.Disconnected(ctx, c.Identity())
}

// Disconnected handles the loss of the connection bound to identity. A meter
// that already reconnected on another connection stays online.
func (d *Dispatcher) Disconnected(ctx context.Context, identity string) {
	if d.out != nil && d.out.Bound(identity) {
		d.log.Info("stale connection closed, meter still connected", zap.String("meter_id", identity))
		return
	}
	m, err := d.store.MarkMeterOffline(ctx, identity)
	if err != nil {
		return
	}
	d.log.Info("meter offline", zap.String("meter_id", identity))
	if d.out != nil {
		d.out.Broadcast(protocol.OK("app_disconnected", map[string]any{"meterId": identity}))
	}
	d.alert(notification.Alert{
		MeterID:   m.ID,
		MeterName: m.Name,
		Kind:      notification.AlertOffline,
		Message:   "El parkímetro se ha desconectado",
	})
}
