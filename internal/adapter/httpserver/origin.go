package httpserver

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// newCheckOrigin builds the WebSocket origin check. Requests without an Origin header and
// same-host requests are always accepted. With no configured origins every origin is
// accepted, since display walls are often served from another host. In development
// localhost origins are accepted as well.
func newCheckOrigin(allowed []string, isDevelopment bool) func(r *http.Request) bool {
	normalized := make([]string, 0, len(allowed))
	for _, o := range allowed {
		if origin := extractOrigin(o); origin != "" {
			normalized = append(normalized, origin)
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(normalized) == 0 {
			return true
		}

		u, err := url.Parse(origin)
		if err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}

		if slices.Contains(normalized, strings.ToLower(origin)) {
			return true
		}

		if isDevelopment && isLocalhostOrigin(origin) {
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
