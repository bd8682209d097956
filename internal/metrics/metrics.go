package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the background jobs.
type Metrics struct {
	// SyncTotal counts per-connection sync outcomes.
	SyncTotal *prometheus.CounterVec
	// SyncDuration tracks how long one connection's sync takes.
	SyncDuration prometheus.Histogram
	// ActiveConnections tracks connections seen by the last reconciliation run.
	ActiveConnections prometheus.Gauge
	// NotificationsSent counts goal push notifications handed to the sender.
	NotificationsSent prometheus.Counter

	registry *prometheus.Registry
}

// Sync outcome label values.
const (
	OutcomeSynced   = "synced"
	OutcomeRevoked  = "revoked"
	OutcomeFailed   = "failed"
	OutcomeDeferred = "deferred"
)

// New creates and registers all metrics on a private registry.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SyncTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_total",
				Help:      "Per-connection sync outcomes",
			},
			[]string{"outcome"},
		),
		SyncDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Duration of one connection sync",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		ActiveConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_connections",
				Help:      "Active connections in the last reconciliation run",
			},
		),
		NotificationsSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_sent_total",
				Help:      "Goal push notifications handed to the sender",
			},
		),
	}

	registry.MustRegister(m.SyncTotal, m.SyncDuration, m.ActiveConnections, m.NotificationsSent)
	return m
}

// Handler exposes the registry for a /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
