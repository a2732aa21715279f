// Package metrics exposes the relay's Prometheus counters on a private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "feedbackbot"

// Relay directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Relay results.
const (
	ResultOK          = "ok"
	ResultTransport   = "transport_error"
	ResultStorage     = "storage_error"
	ResultUnsupported = "unsupported"
	ResultNotFound    = "not_found"
	ResultNoTarget    = "no_target"
	ResultRateLimited = "rate_limited"
)

type Metrics struct {
	registry *prometheus.Registry

	Relayed     *prometheus.CounterVec
	Updates     *prometheus.CounterVec
	Activations prometheus.Counter
	Cleanup     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_messages_total",
			Help:      "Messages relayed between users and the administrator.",
		}, []string{"direction", "kind", "result"}),
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Bot API updates received, by source.",
		}, []string{"source"}),
		Activations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reply_activations_total",
			Help:      "Reply targets armed by the administrator.",
		}),
		Cleanup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Best-effort cleanup steps that failed.",
		}, []string{"step"}),
	}
	reg.MustRegister(
		m.Relayed,
		m.Updates,
		m.Activations,
		m.Cleanup,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRelay is safe on a nil receiver.
func (m *Metrics) ObserveRelay(direction, kind, result string) {
	if m == nil {
		return
	}
	m.Relayed.WithLabelValues(direction, kind, result).Inc()
}

func (m *Metrics) ObserveUpdate(source string) {
	if m == nil {
		return
	}
	m.Updates.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveActivation() {
	if m == nil {
		return
	}
	m.Activations.Inc()
}

func (m *Metrics) ObserveCleanupFailure(step string) {
	if m == nil {
		return
	}
	m.Cleanup.WithLabelValues(step).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
