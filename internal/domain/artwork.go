package domain

import (
	"net/url"
	"strconv"
)

// Widths requested from the image proxy.
const (
	ThumbWidth  = 1200
	PosterWidth = 1000
	ArtWidth    = 2000
)

// PickArtwork chooses the poster and backdrop paths for a session. Episodes prefer series
// and season art over the episode still when preferSeries is set.
func PickArtwork(a Artwork, episode, preferSeries bool) (thumb, art string) {
	if episode && preferSeries {
		return firstNonEmpty(a.GrandparentThumb, a.ParentThumb, a.Thumb),
			firstNonEmpty(a.GrandparentArt, a.ParentArt, a.Art)
	}
	return a.Thumb, a.Art
}

// ImageProxyURL returns the local image proxy URL for a media-server path, or nil when
// there is no path so the field serializes as null.
func ImageProxyURL(path string, width int) *string {
	if path == "" {
		return nil
	}
	q := url.Values{}
	q.Set("path", path)
	q.Set("width", strconv.Itoa(width))
	proxied := "/api/image?" + q.Encode()
	return &proxied
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
