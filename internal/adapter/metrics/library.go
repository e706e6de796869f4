package metrics

import "github.com/prometheus/client_golang/prometheus"

// LibraryMetrics holds Prometheus metrics for recently-added library lookups.
type LibraryMetrics struct {
	Requests     *prometheus.CounterVec
	BreakerState *prometheus.GaugeVec
}

// NewLibraryMetrics creates and registers library metrics on the given registry.
func NewLibraryMetrics(reg prometheus.Registerer) *LibraryMetrics {
	m := &LibraryMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "library",
			Name:      "requests_total",
			Help:      "Total number of media-server library requests, by result.",
		}, []string{"result"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "library",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),
	}

	reg.MustRegister(m.Requests, m.BreakerState)
	return m
}
