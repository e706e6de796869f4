package app

import (
	"sync/atomic"

	"github.com/pscheid92/nowplaying/internal/domain"
)

// Snapshot is the freshest now-playing payload, written by the poller and read by HTTP
// handlers and newly connected displays.
type Snapshot struct {
	current atomic.Pointer[domain.NowPlaying]
}

func (s *Snapshot) Store(np *domain.NowPlaying) {
	s.current.Store(np)
}

// Current returns the active payload, or nil when idle.
func (s *Snapshot) Current() *domain.NowPlaying {
	return s.current.Load()
}

// Event returns the message a late joiner should receive, or nil when idle.
func (s *Snapshot) Event() domain.Event {
	np := s.Current()
	if np == nil {
		return nil
	}
	return domain.SessionStarted{NowPlaying: *np}
}
