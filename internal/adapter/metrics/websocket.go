package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics holds Prometheus metrics for display connections.
type WebSocketMetrics struct {
	ActiveConnections prometheus.Gauge
	AdminConnections  prometheus.Gauge
	MessagesPublished *prometheus.CounterVec
	Evictions         *prometheus.CounterVec
	HeartbeatTimeouts prometheus.Counter
	InboundCommands   *prometheus.CounterVec
}

// NewWebSocketMetrics creates and registers WebSocket metrics on the given registry.
func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of active WebSocket connections.",
		}),
		AdminConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "admin_connections",
			Help:      "Number of active WebSocket connections with admin privileges.",
		}),
		MessagesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_published_total",
			Help:      "Total number of broadcast messages published, by type.",
		}, []string{"type"}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "evictions_total",
			Help:      "Total number of connections dropped by the hub, by reason.",
		}, []string{"reason"}),
		HeartbeatTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "heartbeat_timeouts_total",
			Help:      "Total number of connections closed for missing a heartbeat.",
		}),
		InboundCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "inbound_commands_total",
			Help:      "Total number of inbound preview commands, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.ActiveConnections, m.AdminConnections, m.MessagesPublished, m.Evictions, m.HeartbeatTimeouts, m.InboundCommands)
	return m
}
