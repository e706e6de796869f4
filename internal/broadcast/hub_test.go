package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/nowplaying/internal/adapter/metrics"
	"github.com/pscheid92/nowplaying/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory Conn. Reads block until a frame is pushed or the conn is closed.
type fakeConn struct {
	mu          sync.Mutex
	texts       [][]byte
	pings       int
	closeFrames int
	failWrites  bool
	pongHandler func(string) error
	readLimit   int64

	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 8), closed: make(chan struct{})}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("broken pipe")
	}
	switch messageType {
	case ws.TextMessage:
		f.texts = append(f.texts, data)
	case ws.PingMessage:
		f.pings++
	case ws.CloseMessage:
		f.closeFrames++
	}
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-f.inbound:
		return ws.TextMessage, data, nil
	case <-f.closed:
		return 0, nil, io.EOF
	}
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) SetReadLimit(limit int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readLimit = limit
}

func (f *fakeConn) SetPongHandler(h func(string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pongHandler = h
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) pong() {
	f.mu.Lock()
	h := f.pongHandler
	f.mu.Unlock()
	_ = h("")
}

func (f *fakeConn) messages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([][]byte, len(f.texts))
	copy(result, f.texts)
	return result
}

func (f *fakeConn) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

func (f *fakeConn) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func testHub(t *testing.T, clock clockwork.Clock, snapshot SnapshotFunc, handler MessageHandler) (*Hub, *metrics.WebSocketMetrics) {
	t.Helper()
	m := metrics.NewWebSocketMetrics(prometheus.NewRegistry())
	hub := NewHub(Config{}, snapshot, handler, clock, m)
	t.Cleanup(hub.Stop)
	return hub, m
}

func serve(t *testing.T, hub *Hub, conn Conn, admin bool) {
	t.Helper()
	go func() { _ = hub.Serve(context.Background(), conn, admin) }()
}

func waitForClientCount(h *Hub, expected int) bool {
	for range 200 {
		if h.ClientCount() == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func messageType(t *testing.T, data []byte) string {
	t.Helper()
	var env domain.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env.Type
}

func TestHub_FanoutIsolation(t *testing.T) {
	hub, m := testHub(t, clockwork.NewRealClock(), nil, nil)

	conn1, conn2, conn3 := newFakeConn(), newFakeConn(), newFakeConn()
	conn2.failWrites = true
	for _, c := range []*fakeConn{conn1, conn2, conn3} {
		serve(t, hub, c, false)
	}
	require.True(t, waitForClientCount(hub, 3))

	hub.Broadcast(domain.SessionEnded{})

	assert.Eventually(t, func() bool { return len(conn1.messages()) == 1 && len(conn3.messages()) == 1 }, time.Second, time.Millisecond)
	assert.JSONEq(t, `{"type":"IDLE","payload":null}`, string(conn1.messages()[0]))
	assert.True(t, waitForClientCount(hub, 2), "failing connection should be removed")
	assert.Eventually(t, conn2.isClosed, time.Second, time.Millisecond)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Evictions.WithLabelValues(reasonWriteError)), 0)

	hub.Broadcast(domain.ConfigPreviewCleared{})
	assert.Eventually(t, func() bool { return len(conn1.messages()) == 2 && len(conn3.messages()) == 2 }, time.Second, time.Millisecond)
}

func TestHub_SendsSnapshotToLateJoiner(t *testing.T) {
	snapshot := func() domain.Event {
		return domain.SessionStarted{NowPlaying: domain.NowPlaying{PlaybackSession: domain.PlaybackSession{RatingKey: "42"}}}
	}
	hub, _ := testHub(t, clockwork.NewRealClock(), snapshot, nil)

	conn := newFakeConn()
	serve(t, hub, conn, false)

	assert.Eventually(t, func() bool { return len(conn.messages()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, domain.TypeNowPlaying, messageType(t, conn.messages()[0]))
}

func TestHub_NoSnapshotWhenIdle(t *testing.T) {
	hub, _ := testHub(t, clockwork.NewRealClock(), func() domain.Event { return nil }, nil)

	conn := newFakeConn()
	serve(t, hub, conn, false)
	require.True(t, waitForClientCount(hub, 1))

	assert.Empty(t, conn.messages())
}

func TestHub_InboundMessagesRelayedToAll(t *testing.T) {
	handler := func(_ context.Context, admin bool, _ []byte) domain.Event {
		if !admin {
			return nil
		}
		return domain.ConfigPreviewCleared{}
	}
	hub, _ := testHub(t, clockwork.NewRealClock(), nil, handler)

	admin, viewer := newFakeConn(), newFakeConn()
	serve(t, hub, admin, true)
	serve(t, hub, viewer, false)
	require.True(t, waitForClientCount(hub, 2))

	viewer.inbound <- []byte(`{"type":"CONFIG_PREVIEW_CLEAR"}`)
	require.True(t, waitForClientCount(hub, 2))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, admin.messages(), "non-admin message must not be relayed")

	admin.inbound <- []byte(`{"type":"CONFIG_PREVIEW_CLEAR"}`)
	assert.Eventually(t, func() bool { return len(admin.messages()) == 1 && len(viewer.messages()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, domain.TypeConfigPreviewClear, messageType(t, viewer.messages()[0]))
}

func TestHub_HeartbeatClosesUnresponsivePeers(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	hub, m := testHub(t, fakeClock, nil, nil)

	conn := newFakeConn()
	serve(t, hub, conn, false)
	require.True(t, waitForClientCount(hub, 1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, fakeClock.BlockUntilContext(ctx, 1))

	fakeClock.Advance(DefaultHeartbeatInterval)
	assert.Eventually(t, func() bool { return conn.pingCount() == 1 }, time.Second, time.Millisecond)

	conn.pong()
	require.Equal(t, 1, hub.ClientCount())

	fakeClock.Advance(DefaultHeartbeatInterval)
	assert.Eventually(t, func() bool { return conn.pingCount() == 2 }, time.Second, time.Millisecond)
	require.Equal(t, 1, hub.ClientCount(), "peer that answered should survive")

	fakeClock.Advance(DefaultHeartbeatInterval)
	assert.True(t, waitForClientCount(hub, 0), "peer that missed a pong should be removed")
	assert.Eventually(t, conn.isClosed, time.Second, time.Millisecond)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HeartbeatTimeouts), 0)
}

func TestHub_RejectsBeyondMaxClients(t *testing.T) {
	m := metrics.NewWebSocketMetrics(prometheus.NewRegistry())
	hub := NewHub(Config{MaxClients: 1}, nil, nil, clockwork.NewRealClock(), m)
	t.Cleanup(hub.Stop)

	first := newFakeConn()
	serve(t, hub, first, false)
	require.True(t, waitForClientCount(hub, 1))

	second := newFakeConn()
	err := hub.Serve(context.Background(), second, false)
	require.ErrorIs(t, err, ErrHubFull)
	assert.True(t, second.isClosed())
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, m := testHub(t, clockwork.NewRealClock(), nil, nil)

	conn := newFakeConn()
	serve(t, hub, conn, true)
	require.True(t, waitForClientCount(hub, 1))
	assert.InDelta(t, 1, testutil.ToFloat64(m.AdminConnections), 0)

	_ = conn.Close()
	require.True(t, waitForClientCount(hub, 0))
	assert.InDelta(t, 0, testutil.ToFloat64(m.AdminConnections), 0)
}

func TestHub_StopSendsCloseFrames(t *testing.T) {
	m := metrics.NewWebSocketMetrics(prometheus.NewRegistry())
	hub := NewHub(Config{}, nil, nil, clockwork.NewRealClock(), m)

	conn := newFakeConn()
	serve(t, hub, conn, false)
	require.True(t, waitForClientCount(hub, 1))

	hub.Stop()

	assert.True(t, conn.isClosed())
	conn.mu.Lock()
	assert.Equal(t, 1, conn.closeFrames)
	conn.mu.Unlock()
	assert.Equal(t, -1, hub.ClientCount())

	hub.Stop()
}

func TestHub_WebSocketRoundTrip(t *testing.T) {
	snapshot := func() domain.Event {
		return domain.SessionStarted{NowPlaying: domain.NowPlaying{PlaybackSession: domain.PlaybackSession{RatingKey: "7"}}}
	}
	hub, _ := testHub(t, clockwork.NewRealClock(), snapshot, nil)

	server, client := newTestConnPair(t)
	serve(t, hub, server, false)

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, domain.TypeNowPlaying, messageType(t, msg))

	hub.Broadcast(domain.SessionEnded{})
	_, msg, err = client.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"IDLE","payload":null}`, string(msg))
}

func TestHub_AppliesInboundReadLimit(t *testing.T) {
	hub, _ := testHub(t, clockwork.NewFakeClock(), func() domain.Event { return nil }, nil)
	conn := newFakeConn()

	serve(t, hub, conn, false)
	require.True(t, waitForClientCount(hub, 1))

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.Equal(t, int64(maxInboundFrameSize), conn.readLimit)
}

func TestHub_OversizedFrameClosesConnection(t *testing.T) {
	var relayed atomic.Int32
	handler := func(context.Context, bool, []byte) domain.Event {
		relayed.Add(1)
		return nil
	}
	hub, _ := testHub(t, clockwork.NewRealClock(), func() domain.Event { return nil }, handler)

	server, client := newTestConnPair(t)
	serve(t, hub, server, false)
	require.True(t, waitForClientCount(hub, 1))

	require.NoError(t, client.WriteMessage(ws.TextMessage, []byte(strings.Repeat("x", 64<<10))))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var err error
	for err == nil {
		_, _, err = client.ReadMessage()
	}
	assert.True(t, ws.IsCloseError(err, ws.CloseMessageTooBig), "unexpected error: %v", err)
	assert.True(t, waitForClientCount(hub, 0))
	assert.Zero(t, relayed.Load())
}

func newTestConnPair(t *testing.T) (server *ws.Conn, client *ws.Conn) {
	t.Helper()
	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ready := make(chan *ws.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ready <- conn
	}))
	t.Cleanup(func() { srv.Close() })

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-ready
	t.Cleanup(func() { serverConn.Close() })

	return serverConn, clientConn
}
