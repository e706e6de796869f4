package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePreview_DropsKeysOutsideAllowList(t *testing.T) {
	raw := map[string]json.RawMessage{
		"theme":      json.RawMessage(`"amber"`),
		"plex_token": json.RawMessage(`"leak"`),
	}

	fields := SanitizePreview(raw)

	data, err := json.Marshal(fields)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"amber"}`, string(data))
	assert.NotContains(t, string(data), "leak")
}

func TestSanitizePreview_ClampsAndCoerces(t *testing.T) {
	raw := map[string]json.RawMessage{
		"backdrop_opacity":   json.RawMessage(`7`),
		"synopsis_max_lines": json.RawMessage(`0`),
		"show_synopsis":      json.RawMessage(`0`),
		"show_badges":        json.RawMessage(`true`),
		"title_scale":        json.RawMessage(`"big"`),
		"theme":              json.RawMessage(`42`),
	}

	fields := SanitizePreview(raw)

	require.NotNil(t, fields.BackdropOpacity)
	assert.InDelta(t, 1.0, *fields.BackdropOpacity, 0.0001)
	require.NotNil(t, fields.SynopsisMaxLines)
	assert.Equal(t, 1, *fields.SynopsisMaxLines)
	require.NotNil(t, fields.ShowSynopsis)
	assert.False(t, *fields.ShowSynopsis)
	require.NotNil(t, fields.ShowBadges)
	assert.True(t, *fields.ShowBadges)
	assert.Nil(t, fields.TitleScale)
	assert.Nil(t, fields.Theme)
}

func TestSanitizePreview_EmptyWhenNothingSurvives(t *testing.T) {
	fields := SanitizePreview(map[string]json.RawMessage{"admin_password": json.RawMessage(`"x"`)})
	assert.True(t, fields.IsEmpty())
}

func TestEncodeEvent_Envelope(t *testing.T) {
	data, err := EncodeEvent(SessionEnded{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"IDLE","payload":null}`, string(data))

	data, err = EncodeEvent(ProgressUpdate{Progress: Progress{
		RatingKey: "42", MachineIdentifier: "tv", ProgressMs: 12500, DurationMs: 60000, State: StatePlaying, Timestamp: 1,
	}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"PROGRESS","payload":{"ratingKey":"42","machineIdentifier":"tv","progress":12500,"duration":60000,"state":"playing","ts":1}}`, string(data))
}

func TestPickArtwork(t *testing.T) {
	art := Artwork{Thumb: "/ep", Art: "/ep-art", ParentThumb: "/season", GrandparentThumb: "/show", GrandparentArt: "/show-art"}

	thumb, backdrop := PickArtwork(art, true, true)
	assert.Equal(t, "/show", thumb)
	assert.Equal(t, "/show-art", backdrop)

	thumb, backdrop = PickArtwork(art, true, false)
	assert.Equal(t, "/ep", thumb)
	assert.Equal(t, "/ep-art", backdrop)

	thumb, _ = PickArtwork(Artwork{ParentThumb: "/season"}, true, true)
	assert.Equal(t, "/season", thumb)
}

func TestImageProxyURL(t *testing.T) {
	assert.Nil(t, ImageProxyURL("", ThumbWidth))

	proxied := ImageProxyURL("/library/metadata/1/thumb", ThumbWidth)
	require.NotNil(t, proxied)
	assert.Equal(t, "/api/image?path=%2Flibrary%2Fmetadata%2F1%2Fthumb&width=1200", *proxied)
}

func TestPlayerName(t *testing.T) {
	assert.Equal(t, "Living Room", Player{Title: "Living Room", Product: "Plex Web"}.Name())
	assert.Equal(t, "Plex Web", Player{Product: "Plex Web", Platform: "Chrome"}.Name())
	assert.Equal(t, "Chrome", Player{Platform: "Chrome"}.Name())
}

func TestSessionIdentity_DeviceMatters(t *testing.T) {
	a := PlaybackSession{RatingKey: "1", Player: Player{MachineIdentifier: "tv"}}
	b := PlaybackSession{RatingKey: "1", Player: Player{MachineIdentifier: "phone"}}
	assert.NotEqual(t, a.Identity(), b.Identity())
	assert.Equal(t, "1:tv", a.Identity().String())
}
