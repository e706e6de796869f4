package plex

import (
	"context"
	"strings"

	"github.com/pscheid92/nowplaying/internal/domain"
)

// ListSessions returns the active playback sessions in server order.
func (c *Client) ListSessions(ctx context.Context) ([]domain.PlaybackSession, error) {
	var out mediaContainer[plexMetadata]
	if err := c.getJSON(ctx, "/status/sessions", nil, &out); err != nil {
		return nil, err
	}

	sessions := make([]domain.PlaybackSession, 0, len(out.MediaContainer.Metadata))
	for _, m := range out.MediaContainer.Metadata {
		sessions = append(sessions, toSession(m))
	}
	return sessions, nil
}

func toSession(m plexMetadata) domain.PlaybackSession {
	var user domain.SessionUser
	if m.User != nil {
		user = domain.SessionUser{ID: string(m.User.ID), Title: m.User.Title}
	}

	var player domain.Player
	if m.Player != nil {
		player = domain.Player{
			Title:             m.Player.Title,
			Product:           m.Player.Product,
			Platform:          m.Player.Platform,
			MachineIdentifier: m.Player.MachineIdentifier,
			State:             m.Player.State,
		}
	}

	progress := int64(m.ViewOffset)
	state := strings.ToLower(player.State)
	if state == "" {
		state = domain.StatePaused
		if progress > 0 {
			state = domain.StatePlaying
		}
	}

	s := domain.PlaybackSession{
		RatingKey:     string(m.RatingKey),
		Type:          m.Type,
		Title:         displayTitle(m),
		Year:          int(m.Year),
		Summary:       m.Summary,
		Series:        m.GrandparentTitle,
		SeasonNumber:  optionalInt(m.ParentIndex),
		EpisodeNumber: optionalInt(m.Index),
		User:          user,
		Player:        player,
		ProgressMs:    progress,
		DurationMs:    int64(m.Duration),
		State:         state,
		Media:         mediaInfo(m.Media),
		Artwork:       artwork(m),
	}
	if strings.EqualFold(m.Type, "episode") {
		s.EpisodeTitle = m.Title
	}
	return s
}

func displayTitle(m plexMetadata) string {
	for _, t := range []string{m.Title, m.GrandparentTitle, m.ParentTitle} {
		if t != "" {
			return t
		}
	}
	return ""
}

func artwork(m plexMetadata) domain.Artwork {
	return domain.Artwork{
		Thumb:            m.Thumb,
		Art:              m.Art,
		ParentThumb:      m.ParentThumb,
		ParentArt:        m.ParentArt,
		GrandparentThumb: m.GrandparentThumb,
		GrandparentArt:   m.GrandparentArt,
	}
}
