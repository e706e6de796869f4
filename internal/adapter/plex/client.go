package plex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pscheid92/nowplaying/internal/adapter/metrics"
	"github.com/pscheid92/nowplaying/internal/domain"
	"github.com/sony/gobreaker"
)

const (
	defaultTimeout  = 5 * time.Second
	clientProduct   = "NowPlayingWall"
	clientVersion   = "1.0"
	clientIdentity  = "nowplaying-wall"
	maxErrorBodyLen = 512
)

// Config configures the media-server client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client is a Plex API client.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.LibraryMetrics
}

var (
	_ domain.SessionSource  = (*Client)(nil)
	_ domain.Library        = (*Client)(nil)
	_ domain.MetadataSource = (*Client)(nil)
)

// NewClient creates a client. An empty BaseURL or Token yields a client whose calls fail with
// domain.ErrSourceNotReady.
func NewClient(cfg Config, m *metrics.LibraryMetrics) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &Client{
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		metrics: m,
	}

	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
		if err != nil {
			return nil, fmt.Errorf("invalid media server URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("invalid media server URL scheme %q", u.Scheme)
		}
		c.baseURL = u
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "plex-library",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrSourceNotReady) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			m.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	m.BreakerState.WithLabelValues("plex-library").Set(float64(gobreaker.StateClosed))

	return c, nil
}

// Configured reports whether the client has a server URL and token.
func (c *Client) Configured() bool {
	return c.baseURL != nil && c.token != ""
}

// Ping checks that the media server answers with the configured token.
func (c *Client) Ping(ctx context.Context) error {
	var out map[string]any
	return c.getJSON(ctx, "/identity", nil, &out)
}

func (c *Client) endpoint(path string, params url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = params.Encode()
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, path string, params url.Values, accept string) (*http.Request, error) {
	if !c.Configured() {
		return nil, domain.ErrSourceNotReady
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, params), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("X-Plex-Product", clientProduct)
	req.Header.Set("X-Plex-Version", clientVersion)
	req.Header.Set("X-Plex-Client-Identifier", clientIdentity)
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	req, err := c.newRequest(ctx, path, params, "application/json")
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("plex request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode plex response for %s: %w", path, err)
	}
	return nil
}

// guarded runs a library call through the circuit breaker.
func guarded[T any](c *Client, fn func() (T, error)) (T, error) {
	var zero T
	result, err := c.breaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		c.metrics.Requests.WithLabelValues(resultLabel(err)).Inc()
		return zero, err
	}
	c.metrics.Requests.WithLabelValues("ok").Inc()
	return result.(T), nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	case errors.Is(err, domain.ErrSourceNotReady):
		return "unconfigured"
	default:
		return "error"
	}
}

// StatusError is returned for non-success responses from the media server.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("plex %s returned %d: %s", e.Path, e.StatusCode, e.Body)
}
