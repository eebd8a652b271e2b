// Package metrics exposes the Prometheus instruments shared by the services.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meypark"

// Message results.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultUnknown = "unknown_type"
	ResultInvalid = "invalid"
)

type Metrics struct {
	registry *prometheus.Registry

	connections     prometheus.Gauge
	messages        *prometheus.CounterVec
	broadcasts      prometheus.Counter
	broadcastDrops  prometheus.Counter
	invoices        *prometheus.CounterVec
	upstreamFetches *prometheus.CounterVec
	alerts          *prometheus.CounterVec
}

// New builds the instruments for service on a private registry that also carries
// the Go runtime and process collectors.
func New(service string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	constLabels := prometheus.Labels{"service": service}

	m := &Metrics{
		registry: reg,
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ws_connections",
			Help: "Open realtime connections.", ConstLabels: constLabels,
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ws_messages_total",
			Help: "Inbound realtime messages by type and result.", ConstLabels: constLabels,
		}, []string{"type", "result"}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ws_broadcasts_total",
			Help: "Messages fanned out to every connection.", ConstLabels: constLabels,
		}),
		broadcastDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ws_dropped_messages_total",
			Help: "Outbound messages dropped because a client's send buffer was full.", ConstLabels: constLabels,
		}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "invoices_total",
			Help: "Invoice generation attempts by result.", ConstLabels: constLabels,
		}, []string{"result"}),
		upstreamFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "upstream_fetches_total",
			Help: "Snapshot fetches from the centralized backend by result.", ConstLabels: constLabels,
		}, []string{"result"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "push_alerts_total",
			Help: "Web push alerts by result.", ConstLabels: constLabels,
		}, []string{"result"}),
	}
	reg.MustRegister(m.connections, m.messages, m.broadcasts, m.broadcastDrops,
		m.invoices, m.upstreamFetches, m.alerts)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) Message(typ, result string) {
	if m != nil {
		m.messages.WithLabelValues(typ, result).Inc()
	}
}

func (m *Metrics) Broadcast() {
	if m != nil {
		m.broadcasts.Inc()
	}
}

func (m *Metrics) Dropped() {
	if m != nil {
		m.broadcastDrops.Inc()
	}
}

func (m *Metrics) Invoice(result string) {
	if m != nil {
		m.invoices.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) UpstreamFetch(result string) {
	if m != nil {
		m.upstreamFetches.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Alert(result string) {
	if m != nil {
		m.alerts.WithLabelValues(result).Inc()
	}
}
