package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/nowplaying/internal/adapter/metrics"
	"github.com/pscheid92/nowplaying/internal/domain"
	"github.com/pscheid92/nowplaying/internal/platform/correlation"
)

const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultMaxClients        = 1000

	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

// Eviction reasons, used for logs and metrics.
const (
	reasonSlow       = "slow_client"
	reasonWriteError = "write_error"
	reasonHeartbeat  = "heartbeat_timeout"
	reasonDisconnect = "disconnect"
)

var (
	ErrHubFull    = errors.New("maximum number of connections reached")
	ErrHubStopped = errors.New("hub stopped")
)

// MessageHandler turns an inbound frame into an event to broadcast, or nil to drop it.
type MessageHandler func(ctx context.Context, admin bool, data []byte) domain.Event

// SnapshotFunc returns the event a freshly connected display should receive, or nil.
type SnapshotFunc func() domain.Event

// Config holds the hub tunables.
type Config struct {
	HeartbeatInterval time.Duration
	MaxClients        int
}

type client struct {
	id       string
	admin    bool
	writer   *clientWriter
	liveness liveness
}

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	client       *client
	connection   Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	client *client
	reason string
}

type broadcastCmd struct {
	baseHubCmd
	event domain.Event
}

type pongCmd struct {
	baseHubCmd
	client *client
}

type getClientCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub is the registry of display connections. All registry state is owned by the run goroutine.
type Hub struct {
	cmdCh             chan hubCmd
	clock             clockwork.Clock
	clients           map[*client]struct{}
	snapshot          SnapshotFunc
	handler           MessageHandler
	metrics           *metrics.WebSocketMetrics
	heartbeatInterval time.Duration
	maxClients        int
	stopTimeout       time.Duration
	done              chan struct{}
}

// NewHub starts the hub actor. snapshot and handler may be nil.
func NewHub(cfg Config, snapshot SnapshotFunc, handler MessageHandler, clock clockwork.Clock, m *metrics.WebSocketMetrics) *Hub {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}

	h := &Hub{
		cmdCh:             make(chan hubCmd, 256),
		clock:             clock,
		clients:           make(map[*client]struct{}),
		snapshot:          snapshot,
		handler:           handler,
		metrics:           m,
		heartbeatInterval: cfg.HeartbeatInterval,
		maxClients:        cfg.MaxClients,
		stopTimeout:       stopTimeout,
		done:              make(chan struct{}),
	}
	go h.run()
	return h
}

// Serve registers conn, sends the current snapshot, and runs the read pump until the peer goes
// away or the hub drops the connection. Inbound frames are passed to the message handler and
// any resulting event is broadcast to every connection.
func (h *Hub) Serve(ctx context.Context, conn Conn, admin bool) error {
	c := &client{id: uuid.NewString(), admin: admin}
	ctx = correlation.WithID(ctx, c.id[:8])

	conn.SetReadLimit(maxInboundFrameSize)
	conn.SetPongHandler(func(string) error {
		h.send(pongCmd{client: c})
		return nil
	})

	if err := h.register(c, conn); err != nil {
		_ = conn.Close()
		return err
	}
	defer h.send(unregisterCmd{client: c, reason: reasonDisconnect})

	slog.InfoContext(ctx, "Display connected", "connection_id", c.id, "admin", admin)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			slog.DebugContext(ctx, "Read pump ended", "connection_id", c.id, "error", err)
			return nil
		}
		if h.handler == nil {
			continue
		}
		if event := h.handler(ctx, c.admin, data); event != nil {
			h.Broadcast(event)
		}
	}
}

// Broadcast fans an event out to every open connection. It never blocks on a slow peer.
func (h *Hub) Broadcast(event domain.Event) {
	h.send(broadcastCmd{event: event})
}

// ClientCount returns the number of registered connections, or -1 if the hub does not answer.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	if !h.send(getClientCountCmd{replyChannel: replyCh}) {
		return -1
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop sends close frames to every connection and waits for the actor to exit, bounded by
// the stop timeout.
func (h *Hub) Stop() {
	if !h.send(stopCmd{}) {
		return
	}

	timeout := h.clock.NewTimer(h.stopTimeout)
	defer timeout.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", h.stopTimeout)
	}
}

func (h *Hub) register(c *client, conn Conn) error {
	errCh := make(chan error, 1)
	if !h.send(registerCmd{client: c, connection: conn, errorChannel: errCh}) {
		return ErrHubStopped
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// send delivers a command unless the actor has exited.
func (h *Hub) send(cmd hubCmd) bool {
	select {
	case h.cmdCh <- cmd:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) run() {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			h.closeAllClients("server error")
		}
	}()

	heartbeat := h.clock.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				h.handleRegister(c)
			case unregisterCmd:
				h.handleUnregister(c.client, c.reason)
			case broadcastCmd:
				h.handleBroadcast(c.event)
			case pongCmd:
				if _, ok := h.clients[c.client]; ok {
					c.client.liveness = c.client.liveness.onPong()
				}
			case getClientCountCmd:
				c.replyChannel <- len(h.clients)
			case stopCmd:
				h.handleStop()
				return
			default:
				slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		case <-heartbeat.Chan():
			h.handleHeartbeat()
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting display: max connections reached", "max_clients", h.maxClients)
		c.errorChannel <- ErrHubFull
		return
	}

	cl := c.client
	cl.liveness = alive
	cl.writer = newClientWriter(c.connection, func(err error) {
		slog.Debug("Write failed", "connection_id", cl.id, "error", err)
		h.send(unregisterCmd{client: cl, reason: reasonWriteError})
	})
	h.clients[cl] = struct{}{}

	h.metrics.ActiveConnections.Inc()
	if cl.admin {
		h.metrics.AdminConnections.Inc()
	}

	if h.snapshot != nil {
		if event := h.snapshot(); event != nil {
			h.deliver(cl, event)
		}
	}

	slog.Debug("Display registered", "connection_id", cl.id, "total_clients", len(h.clients))
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(cl *client, reason string) {
	if _, ok := h.clients[cl]; !ok {
		return
	}

	delete(h.clients, cl)
	cl.writer.stop()

	h.metrics.ActiveConnections.Dec()
	if cl.admin {
		h.metrics.AdminConnections.Dec()
	}
	if reason != reasonDisconnect {
		h.metrics.Evictions.WithLabelValues(reason).Inc()
		slog.Warn("Display evicted", "connection_id", cl.id, "reason", reason, "remaining_clients", len(h.clients))
		return
	}
	slog.Debug("Display unregistered", "connection_id", cl.id, "remaining_clients", len(h.clients))
}

// deliver sends a single event to one connection, outside the fanout path.
func (h *Hub) deliver(cl *client, event domain.Event) {
	data, err := domain.EncodeEvent(event)
	if err != nil {
		slog.Error("Failed to marshal event", "type", event.Type(), "error", err)
		return
	}
	if !cl.writer.enqueue(frame{messageType: websocket.TextMessage, data: data}) {
		h.handleUnregister(cl, reasonSlow)
	}
}

func (h *Hub) handleBroadcast(event domain.Event) {
	data, err := domain.EncodeEvent(event)
	if err != nil {
		slog.Error("Failed to marshal broadcast message", "type", event.Type(), "error", err)
		return
	}

	var slow []*client
	for cl := range h.clients {
		if !cl.writer.enqueue(frame{messageType: websocket.TextMessage, data: data}) {
			slow = append(slow, cl)
		}
	}
	for _, cl := range slow {
		h.handleUnregister(cl, reasonSlow)
	}

	h.metrics.MessagesPublished.WithLabelValues(event.Type()).Inc()
	slog.Debug("Broadcast", "type", event.Type(), "clients", len(h.clients), "evicted", len(slow))
}

func (h *Hub) handleHeartbeat() {
	var expired []*client
	for cl := range h.clients {
		cl.liveness = cl.liveness.onHeartbeat()
		if cl.liveness == dead {
			expired = append(expired, cl)
			continue
		}
		if !cl.writer.enqueue(frame{messageType: websocket.PingMessage}) {
			expired = append(expired, cl)
		}
	}

	for _, cl := range expired {
		if cl.liveness == dead {
			h.metrics.HeartbeatTimeouts.Inc()
			h.handleUnregister(cl, reasonHeartbeat)
			continue
		}
		h.handleUnregister(cl, reasonSlow)
	}
}

func (h *Hub) handleStop() {
	total := len(h.clients)
	slog.Info("Hub shutting down", "total_clients", total)
	h.closeAllClients("server shutting down")
	slog.Info("Hub shutdown complete", "disconnected_clients", total)
}

// closeAllClients closes all connections with the given reason.
func (h *Hub) closeAllClients(reason string) {
	for cl := range h.clients {
		cl.writer.stopGraceful(reason)
		delete(h.clients, cl)
	}
	h.metrics.ActiveConnections.Set(0)
	h.metrics.AdminConnections.Set(0)
}
