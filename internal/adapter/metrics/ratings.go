package metrics

import "github.com/prometheus/client_golang/prometheus"

// RatingMetrics holds Prometheus metrics for external rating lookups.
type RatingMetrics struct {
	Lookups      *prometheus.CounterVec
	BreakerState *prometheus.GaugeVec
}

func NewRatingMetrics(reg prometheus.Registerer) *RatingMetrics {
	m := &RatingMetrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratings",
			Name:      "lookups_total",
			Help:      "Total number of rating lookups, by result (cached, fetched, unmatched, error).",
		}, []string{"result"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ratings",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),
	}

	reg.MustRegister(m.Lookups, m.BreakerState)
	return m
}
