package app

import (
	"strings"

	"github.com/pscheid92/nowplaying/internal/domain"
)

// Filters are case-insensitive allow-lists. An empty list allows everything.
type Filters struct {
	Users   []string
	Players []string
}

// MatchSession returns the first eligible session that passes the filters, in source order.
// The media server does not guarantee a stable order, so with several candidates the pick may
// change between polls.
func MatchSession(sessions []domain.PlaybackSession, f Filters) *domain.PlaybackSession {
	for i := range sessions {
		s := &sessions[i]
		if !isEligible(s) {
			continue
		}
		if !allowed(f.Users, s.User.Title) || !allowed(f.Players, s.Player.Name()) {
			continue
		}
		return s
	}
	return nil
}

// isEligible reports whether a session is playing or paused before its end.
func isEligible(s *domain.PlaybackSession) bool {
	if s.State == domain.StatePlaying {
		return true
	}
	return s.DurationMs > 0 && s.ProgressMs < s.DurationMs
}

func allowed(allowList []string, name string) bool {
	if len(allowList) == 0 {
		return true
	}
	if name == "" {
		return false
	}
	for _, a := range allowList {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}
