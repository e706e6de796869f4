package app

import (
	"time"

	"github.com/pscheid92/nowplaying/internal/domain"
)

// progressThresholdMs is the minimum progress drift that is worth a PROGRESS event.
const progressThresholdMs = 2000

// ReconciliationState is what was last announced to the displays. The zero value is idle.
type ReconciliationState struct {
	Active         *domain.SessionIdentity
	LastProgressMs int64
	LastState      string
}

// Idle reports whether no session is announced.
func (s ReconciliationState) Idle() bool {
	return s.Active == nil
}

// Reconciler computes the event for one poll tick. It holds configuration only and has no
// side effects.
type Reconciler struct {
	PreferSeriesArt bool
}

// Step diffs the selected session against state and returns the next state together with
// the event to broadcast, or nil when nothing meaningful changed.
func (r Reconciler) Step(state ReconciliationState, selected *domain.PlaybackSession, now time.Time) (ReconciliationState, domain.Event) {
	if selected == nil {
		if state.Idle() {
			return state, nil
		}
		return ReconciliationState{}, domain.SessionEnded{}
	}

	id := selected.Identity()
	if state.Idle() || *state.Active != id || state.LastState != selected.State {
		next := ReconciliationState{
			Active:         &id,
			LastProgressMs: selected.ProgressMs,
			LastState:      selected.State,
		}
		return next, domain.SessionStarted{NowPlaying: r.Resolve(selected, now)}
	}

	if abs(selected.ProgressMs-state.LastProgressMs) < progressThresholdMs {
		return state, nil
	}

	state.LastProgressMs = selected.ProgressMs
	return state, domain.ProgressUpdate{Progress: domain.Progress{
		RatingKey:         id.RatingKey,
		MachineIdentifier: id.MachineIdentifier,
		ProgressMs:        selected.ProgressMs,
		DurationMs:        selected.DurationMs,
		State:             selected.State,
		Timestamp:         now.UnixMilli(),
	}}
}

// Resolve builds the full display payload for a session, including proxied artwork URLs.
func (r Reconciler) Resolve(s *domain.PlaybackSession, now time.Time) domain.NowPlaying {
	thumb, art := domain.PickArtwork(s.Artwork, s.IsEpisode(), r.PreferSeriesArt)
	return domain.NowPlaying{
		PlaybackSession: *s,
		ThumbURL:        domain.ImageProxyURL(thumb, domain.ThumbWidth),
		ArtURL:          domain.ImageProxyURL(art, domain.ArtWidth),
		Timestamp:       now.UnixMilli(),
	}
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
