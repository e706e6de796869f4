package app

import (
	"testing"

	"github.com/pscheid92/nowplaying/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func session(ratingKey, machine, state string, progress, duration int64) domain.PlaybackSession {
	return domain.PlaybackSession{
		RatingKey:  ratingKey,
		Title:      "Title " + ratingKey,
		User:       domain.SessionUser{Title: "alice"},
		Player:     domain.Player{Title: "Living Room", MachineIdentifier: machine},
		ProgressMs: progress,
		DurationMs: duration,
		State:      state,
	}
}

func TestMatchSession_Eligibility(t *testing.T) {
	tests := []struct {
		name     string
		session  domain.PlaybackSession
		eligible bool
	}{
		{"playing", session("1", "tv", domain.StatePlaying, 0, 0), true},
		{"paused mid-way", session("1", "tv", domain.StatePaused, 1000, 5000), true},
		{"paused at end", session("1", "tv", domain.StatePaused, 5000, 5000), false},
		{"paused without duration", session("1", "tv", domain.StatePaused, 1000, 0), false},
		{"buffering mid-way", session("1", "tv", domain.StateBuffering, 10, 5000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchSession([]domain.PlaybackSession{tt.session}, Filters{})
			assert.Equal(t, tt.eligible, got != nil)
		})
	}
}

func TestMatchSession_FiltersAreCaseInsensitive(t *testing.T) {
	sessions := []domain.PlaybackSession{session("1", "tv", domain.StatePlaying, 0, 0)}

	assert.NotNil(t, MatchSession(sessions, Filters{Users: []string{"ALICE"}}))
	assert.NotNil(t, MatchSession(sessions, Filters{Players: []string{"living room"}}))
	assert.Nil(t, MatchSession(sessions, Filters{Users: []string{"bob"}}))
	assert.Nil(t, MatchSession(sessions, Filters{Users: []string{"alice"}, Players: []string{"bedroom"}}))
}

func TestMatchSession_PlayerNameFallsBackToProduct(t *testing.T) {
	s := session("1", "tv", domain.StatePlaying, 0, 0)
	s.Player.Title = ""
	s.Player.Product = "Plex for LG"

	assert.NotNil(t, MatchSession([]domain.PlaybackSession{s}, Filters{Players: []string{"plex for lg"}}))
}

func TestMatchSession_FirstInSourceOrder(t *testing.T) {
	sessions := []domain.PlaybackSession{
		session("1", "tv", domain.StatePaused, 5000, 5000),
		session("2", "tv", domain.StatePlaying, 0, 0),
		session("3", "phone", domain.StatePlaying, 0, 0),
	}

	got := MatchSession(sessions, Filters{})
	require.NotNil(t, got)
	assert.Equal(t, "2", got.RatingKey)
}

func TestMatchSession_EmptyInput(t *testing.T) {
	assert.Nil(t, MatchSession(nil, Filters{}))
}
