package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/nowplaying/internal/platform/correlation"
)

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromHeader(c.Request().Header.Get(correlation.HeaderName))
		c.Response().Header().Set(correlation.HeaderName, id)
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// upgradeGuard rejects WebSocket upgrade attempts on any path but /ws before routing.
func upgradeGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if websocket.IsWebSocketUpgrade(req) && req.URL.Path != wsPath {
			slog.WarnContext(req.Context(), "Upgrade rejected", "path", req.URL.Path, "remote_addr", c.RealIP())
			return echo.NewHTTPError(http.StatusBadRequest, "websocket upgrades are only accepted on "+wsPath)
		}
		return next(c)
	}
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.isAdmin(c.Request().Context(), bearerToken(c.Request())) {
			return echo.NewHTTPError(http.StatusUnauthorized, "admin token required")
		}
		return next(c)
	}
}

// isAdmin never fails closed into an error: a missing authenticator, a rejected token
// and a panicking verifier all yield a non-admin caller.
func (s *Server) isAdmin(ctx context.Context, token string) (admin bool) {
	if s.auth == nil || token == "" {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Authenticator panicked", "panic", r)
			admin = false
		}
	}()

	principal, err := s.auth.VerifyToken(ctx, token)
	if err != nil {
		slog.InfoContext(ctx, "Admin token rejected", "error", err)
		return false
	}
	return principal != nil
}

// requestToken reads the admin token from the "token" query parameter, which browsers can
// set on a WebSocket URL, falling back to the Authorization header.
func requestToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return bearerToken(r)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
