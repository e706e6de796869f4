package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/nowplaying/internal/adapter/metrics"
	"github.com/pscheid92/nowplaying/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRelay() *PreviewRelay {
	return NewPreviewRelay(metrics.NewWebSocketMetrics(prometheus.NewRegistry()))
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"type":"CONFIG_PREVIEW","payload":{"theme":"amber"}}`))
	require.NoError(t, err)
	set, ok := cmd.(SetPreview)
	require.True(t, ok)
	assert.Contains(t, set.Fields, "theme")

	cmd, err = ParseCommand([]byte(`{"type":"CONFIG_PREVIEW_CLEAR"}`))
	require.NoError(t, err)
	assert.IsType(t, ClearPreview{}, cmd)

	for _, raw := range []string{
		`not json`,
		`{"type":"NOW_PLAYING","payload":{}}`,
		`{"type":"CONFIG_PREVIEW","payload":null}`,
		`{"type":"CONFIG_PREVIEW","payload":[1,2]}`,
		`[]`,
	} {
		_, err := ParseCommand([]byte(raw))
		assert.ErrorIs(t, err, domain.ErrInvalidCommand, raw)
	}
}

func TestPreviewRelay_AllowList(t *testing.T) {
	relay := newTestRelay()

	event := relay.Handle(context.Background(), true, []byte(`{"type":"CONFIG_PREVIEW","payload":{"theme":"amber","plex_token":"leak"}}`))

	preview, ok := event.(domain.ConfigPreview)
	require.True(t, ok, "expected ConfigPreview, got %T", event)
	data, err := domain.EncodeEvent(preview)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"CONFIG_PREVIEW","payload":{"theme":"amber"}}`, string(data))
	assert.NotContains(t, string(data), "plex_token")
}

func TestPreviewRelay_NonAdminRejected(t *testing.T) {
	relay := newTestRelay()

	assert.Nil(t, relay.Handle(context.Background(), false, []byte(`{"type":"CONFIG_PREVIEW","payload":{"theme":"amber"}}`)))
	assert.Nil(t, relay.Handle(context.Background(), false, []byte(`{"type":"CONFIG_PREVIEW_CLEAR"}`)))
}

func TestPreviewRelay_Clear(t *testing.T) {
	event := newTestRelay().Handle(context.Background(), true, []byte(`{"type":"CONFIG_PREVIEW_CLEAR"}`))
	assert.Equal(t, domain.ConfigPreviewCleared{}, event)
}

func TestPreviewRelay_MalformedAndEmptyIgnored(t *testing.T) {
	relay := newTestRelay()

	assert.Nil(t, relay.Handle(context.Background(), true, []byte(`{{{`)))
	assert.Nil(t, relay.Handle(context.Background(), true, []byte(`{"type":"CONFIG_PREVIEW","payload":{"admin_password":"x"}}`)))
}

func TestPreviewRelay_PreviewFieldsAreTyped(t *testing.T) {
	event := newTestRelay().Handle(context.Background(), true, []byte(`{"type":"CONFIG_PREVIEW","payload":{"backdrop_blur_px":20,"show_tmdb":1}}`))

	preview, ok := event.(domain.ConfigPreview)
	require.True(t, ok)
	data, err := json.Marshal(preview.Fields)
	require.NoError(t, err)
	assert.JSONEq(t, `{"backdrop_blur_px":20,"show_tmdb":true}`, string(data))
}
