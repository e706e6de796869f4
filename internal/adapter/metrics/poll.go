package metrics

import "github.com/prometheus/client_golang/prometheus"

// PollMetrics holds Prometheus metrics for the session poll loop.
type PollMetrics struct {
	Ticks        *prometheus.CounterVec
	TickDuration prometheus.Histogram
	Events       *prometheus.CounterVec
	Active       prometheus.Gauge
}

// NewPollMetrics creates and registers poll loop metrics on the given registry.
func NewPollMetrics(reg prometheus.Registerer) *PollMetrics {
	m := &PollMetrics{
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "ticks_total",
			Help:      "Total number of poll ticks, by result.",
		}, []string{"result"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "tick_duration_seconds",
			Help:      "Duration of a poll tick including the source fetch.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "events_total",
			Help:      "Total number of events emitted by the reconciler, by type.",
		}, []string{"type"}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "session_active",
			Help:      "1 when a session is currently announced, 0 when idle.",
		}),
	}

	reg.MustRegister(m.Ticks, m.TickDuration, m.Events, m.Active)
	return m
}
