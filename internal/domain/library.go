package domain

import "context"

// LibrarySection is one media-server library.
type LibrarySection struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// LibraryItem is a recently added item shown on the poster carousel.
type LibraryItem struct {
	RatingKey     string     `json:"ratingKey"`
	Type          string     `json:"type,omitempty"`
	Title         string     `json:"title,omitempty"`
	Year          int        `json:"year,omitempty"`
	Summary       string     `json:"summary"`
	Series        string     `json:"series,omitempty"`
	SeasonNumber  *int       `json:"seasonNumber"`
	EpisodeNumber *int       `json:"episodeNumber"`
	EpisodeTitle  string     `json:"episodeTitle,omitempty"`
	AddedAt       int64      `json:"addedAt"`
	Media         *MediaInfo `json:"media"`
	Artwork
	ThumbURL *string `json:"thumbUrl"`
	ArtURL   *string `json:"artUrl"`
}

// Library lists sections and their recently added items.
type Library interface {
	Libraries(ctx context.Context) ([]LibrarySection, error)
	RecentlyAdded(ctx context.Context, sectionKey string, limit int) ([]LibraryItem, error)
}

// ExternalIDs are the agent identifiers the media server attaches to one item, such as
// "tmdb://603" or "imdb://tt0133093".
type ExternalIDs struct {
	RatingKey            string
	Type                 string
	GrandparentRatingKey string
	GUIDs                []string
}

// MetadataSource looks up the external identifiers of a library item.
type MetadataSource interface {
	ExternalIDs(ctx context.Context, ratingKey string) (*ExternalIDs, error)
}
