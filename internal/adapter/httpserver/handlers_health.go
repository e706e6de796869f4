package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/nowplaying/internal/broadcast"
	"github.com/pscheid92/nowplaying/internal/platform/version"
)

const (
	startupCheckTimeout   = 2 * time.Second
	readinessCheckTimeout = 5 * time.Second

	// A poller that has missed this many intervals in a row is serving a stale snapshot.
	stalePollIntervals = 3
	minStaleAfter      = 10 * time.Second
)

var errNeverPolled = errors.New("no successful poll yet")

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

// handleStartup passes once the media server answers and one poll has gone through.
func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupCheckTimeout)
	defer cancel()

	checks := map[string]error{
		"plex":   s.mediaServer.Ping(ctx),
		"poller": s.checkPolledOnce(),
	}
	return s.writeChecks(c, checks, nil)
}

func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status":   "ok",
		"uptime":   s.clock.Since(s.startTime).Seconds(),
		"displays": max(s.hub.ClientCount(), 0),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

// handleReadiness reports every check, so one failing dependency does not hide another.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessCheckTimeout)
	defer cancel()

	displays := s.hub.ClientCount()
	checks := map[string]error{
		"plex":   s.mediaServer.Ping(ctx),
		"poller": s.checkPollFreshness(),
		"hub":    nil,
	}
	if displays < 0 {
		checks["hub"] = broadcast.ErrHubStopped
	}

	extra := map[string]any{"displays": max(displays, 0)}
	if last := s.poller.LastSuccess(); !last.IsZero() {
		extra["last_poll_age_seconds"] = s.clock.Since(last).Seconds()
	}
	return s.writeChecks(c, checks, extra)
}

func (s *Server) checkPolledOnce() error {
	if s.poller.LastSuccess().IsZero() {
		return errNeverPolled
	}
	return nil
}

func (s *Server) checkPollFreshness() error {
	last := s.poller.LastSuccess()
	if last.IsZero() {
		return errNeverPolled
	}
	staleAfter := max(stalePollIntervals*s.poller.Interval(), minStaleAfter)
	if age := s.clock.Since(last); age > staleAfter {
		return fmt.Errorf("last successful poll %s ago, stale after %s", age.Round(time.Second), staleAfter)
	}
	return nil
}

func (s *Server) writeChecks(c echo.Context, checks map[string]error, extra map[string]any) error {
	status, code := "ready", http.StatusOK
	results := make(map[string]checkResult, len(checks))
	for name, err := range checks {
		if err == nil {
			results[name] = checkResult{Status: "ok"}
			continue
		}
		slog.WarnContext(c.Request().Context(), "Health check failed", "check", name, "error", err)
		results[name] = checkResult{Status: "failing", Error: err.Error()}
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	response := map[string]any{"status": status, "checks": results}
	for k, v := range extra {
		response[k] = v
	}
	if err := c.JSON(code, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
