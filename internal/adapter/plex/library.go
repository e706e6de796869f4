package plex

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pscheid92/nowplaying/internal/domain"
)

// Libraries lists the library sections of the server.
func (c *Client) Libraries(ctx context.Context) ([]domain.LibrarySection, error) {
	return guarded(c, func() ([]domain.LibrarySection, error) {
		var out mediaContainer[plexDirectory]
		if err := c.getJSON(ctx, "/library/sections", nil, &out); err != nil {
			return nil, err
		}

		sections := make([]domain.LibrarySection, 0, len(out.MediaContainer.Directory))
		for _, d := range out.MediaContainer.Directory {
			sections = append(sections, domain.LibrarySection{Key: string(d.Key), Title: d.Title, Type: d.Type})
		}
		return sections, nil
	})
}

// RecentlyAdded returns up to limit items recently added to one section.
func (c *Client) RecentlyAdded(ctx context.Context, sectionKey string, limit int) ([]domain.LibraryItem, error) {
	return guarded(c, func() ([]domain.LibraryItem, error) {
		params := url.Values{}
		params.Set("X-Plex-Container-Start", "0")
		params.Set("X-Plex-Container-Size", strconv.Itoa(limit))

		var out mediaContainer[plexMetadata]
		path := "/library/sections/" + url.PathEscape(sectionKey) + "/recentlyAdded"
		if err := c.getJSON(ctx, path, params, &out); err != nil {
			return nil, err
		}

		items := make([]domain.LibraryItem, 0, len(out.MediaContainer.Metadata))
		for _, m := range out.MediaContainer.Metadata {
			items = append(items, toLibraryItem(m))
		}
		return items, nil
	})
}

func toLibraryItem(m plexMetadata) domain.LibraryItem {
	item := domain.LibraryItem{
		RatingKey:     string(m.RatingKey),
		Type:          m.Type,
		Title:         displayTitle(m),
		Year:          int(m.Year),
		Summary:       m.Summary,
		Series:        m.GrandparentTitle,
		SeasonNumber:  optionalInt(m.ParentIndex),
		EpisodeNumber: optionalInt(m.Index),
		AddedAt:       int64(m.AddedAt),
		Media:         mediaInfo(m.Media),
		Artwork:       artwork(m),
	}
	if strings.EqualFold(m.Type, "episode") {
		item.EpisodeTitle = m.Title
	}
	return item
}

// ExternalIDs returns the agent GUIDs of one item. Episodes also carry the rating key of their
// show, whose GUIDs are often the only ones matched.
func (c *Client) ExternalIDs(ctx context.Context, ratingKey string) (*domain.ExternalIDs, error) {
	return guarded(c, func() (*domain.ExternalIDs, error) {
		params := url.Values{}
		params.Set("includeGuids", "1")

		var out mediaContainer[plexMetadata]
		path := "/library/metadata/" + url.PathEscape(ratingKey)
		if err := c.getJSON(ctx, path, params, &out); err != nil {
			return nil, err
		}
		if len(out.MediaContainer.Metadata) == 0 {
			return nil, &StatusError{Path: path, StatusCode: http.StatusNotFound, Body: "no metadata"}
		}

		m := out.MediaContainer.Metadata[0]
		ids := &domain.ExternalIDs{
			RatingKey:            string(m.RatingKey),
			Type:                 m.Type,
			GrandparentRatingKey: string(m.GrandparentRatingKey),
			GUIDs:                make([]string, 0, len(m.Guid)),
		}
		for _, g := range m.Guid {
			ids.GUIDs = append(ids.GUIDs, g.ID)
		}
		return ids, nil
	})
}
