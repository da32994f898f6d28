package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "panelvault"

// Metrics holds the Prometheus collectors the services update. Construct it
// with NewMetrics; a nil Registerer yields unregistered collectors.
type Metrics struct {
	Resolves      *prometheus.CounterVec
	ProbeFailures *prometheus.CounterVec
	Reveals       *prometheus.CounterVec
	Links         *prometheus.CounterVec
	PurgeRuns     *prometheus.CounterVec
	PurgedRows    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Resolves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "resolves_total",
			Help:      "Server reference resolutions by outcome.",
		}, []string{"outcome"}),
		ProbeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "probe_failures_total",
			Help:      "Per-panel probe failures suppressed by the resolver.",
		}, []string{"operation", "cause"}),
		Reveals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reveals_total",
			Help:      "Credential reveals by outcome.",
		}, []string{"outcome"}),
		Links: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "links_total",
			Help:      "Credential link attempts by outcome.",
		}, []string{"outcome"}),
		PurgeRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "purge_runs_total",
			Help:      "Purge sweeps by result.",
		}, []string{"result"}),
		PurgedRows: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "purged_credentials_total",
			Help:      "Credentials removed by purge sweeps.",
		}),
	}
}

// orNop returns m, or a fresh unregistered Metrics when m is nil.
func (m *Metrics) orNop() *Metrics {
	if m == nil {
		return NewMetrics(nil)
	}
	return m
}
