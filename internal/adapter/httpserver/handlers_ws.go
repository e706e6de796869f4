package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/nowplaying/internal/broadcast"
)

// handleWebSocket upgrades the request and hands the connection to the hub for its lifetime.
// Token problems never reject the upgrade; the connection simply joins as a plain display.
func (s *Server) handleWebSocket(c echo.Context) error {
	req := c.Request()
	ctx := req.Context()
	ip := c.RealIP()

	if ok, reason := s.connLimiter.acquire(ip); !ok {
		s.httpMetrics.UpgradesDenied.WithLabelValues(reason).Inc()
		slog.WarnContext(ctx, "WebSocket upgrade denied", "remote_addr", ip, "reason", reason)
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many connections")
	}
	defer s.connLimiter.release(ip)

	admin := s.isAdmin(ctx, requestToken(req))

	conn, err := s.upgrader.Upgrade(c.Response(), req, nil)
	if err != nil {
		// The upgrader has already written the error response.
		slog.WarnContext(ctx, "WebSocket upgrade failed", "remote_addr", ip, "error", err)
		return nil
	}

	if err := s.hub.Serve(ctx, conn, admin); err != nil {
		if errors.Is(err, broadcast.ErrHubFull) {
			slog.WarnContext(ctx, "WebSocket rejected, connection limit reached", "remote_addr", ip)
			return nil
		}
		slog.InfoContext(ctx, "WebSocket closed", "error", err)
	}
	return nil
}
