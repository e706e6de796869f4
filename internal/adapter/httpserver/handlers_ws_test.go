package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/nowplaying/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialDisplay(t *testing.T, srv *Server, query string, header http.Header) {
	t.Helper()

	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
}

func awaitServe(t *testing.T, hub *fakeHub) bool {
	t.Helper()
	select {
	case admin := <-hub.served:
		return admin
	case <-time.After(2 * time.Second):
		t.Fatal("hub.Serve was not called")
		return false
	}
}

func TestHandleWebSocket_AdminViaQueryToken(t *testing.T) {
	hub := &fakeHub{served: make(chan bool, 1)}
	srv := newTestServer(t, withHub(hub), withAuth(&fakeAuth{}))

	dialDisplay(t, srv, "?token="+adminToken, nil)

	assert.True(t, awaitServe(t, hub))
}

func TestHandleWebSocket_AdminViaBearerHeader(t *testing.T) {
	hub := &fakeHub{served: make(chan bool, 1)}
	srv := newTestServer(t, withHub(hub), withAuth(&fakeAuth{}))

	dialDisplay(t, srv, "", http.Header{"Authorization": []string{"Bearer " + adminToken}})

	assert.True(t, awaitServe(t, hub))
}

func TestHandleWebSocket_BadTokensDowngrade(t *testing.T) {
	tests := []struct {
		name  string
		auth  *fakeAuth
		query string
	}{
		{"no token", &fakeAuth{}, ""},
		{"forged token", &fakeAuth{}, "?token=forged"},
		{"verifier panics", &fakeAuth{panics: true}, "?token=" + adminToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := &fakeHub{served: make(chan bool, 1)}
			srv := newTestServer(t, withHub(hub), withAuth(tt.auth))

			dialDisplay(t, srv, tt.query, nil)

			assert.False(t, awaitServe(t, hub))
		})
	}
}

func TestHandleWebSocket_ConnectRateLimited(t *testing.T) {
	hub := &fakeHub{served: make(chan bool, 2)}
	srv := newTestServer(t, withHub(hub), withConfig(func(cfg *config.Config) {
		cfg.WSConnectRate = 0.001
		cfg.WSConnectBurst = 1
	}))
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	_ = conn.Close()
	awaitServe(t, hub)

	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.InDelta(t, 1, testutil.ToFloat64(srv.httpMetrics.UpgradesDenied.WithLabelValues(denyRate)), 0)
}
