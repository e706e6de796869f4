package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pscheid92/nowplaying/internal/domain"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultLatestLimit = 40

	// latestFetchTimeout bounds a shared fetch, which outlives any single caller's context.
	latestFetchTimeout = 15 * time.Second
)

// LatestConfig holds the defaults for recently-added queries.
type LatestConfig struct {
	LibraryKeys     []string
	Limit           int
	Randomize       bool
	PreferSeriesArt bool
}

// LatestService merges recently added items across library sections for the poster carousel.
type LatestService struct {
	library domain.Library
	cfg     LatestConfig
	group   singleflight.Group
}

func NewLatestService(library domain.Library, cfg LatestConfig) *LatestService {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLatestLimit
	}
	return &LatestService{library: library, cfg: cfg}
}

// Latest returns up to limit items from the given sections, newest first, or shuffled when
// randomization is enabled. Empty keys and a non-positive limit fall back to the configured
// defaults. Concurrent identical queries share one upstream fetch.
func (s *LatestService) Latest(ctx context.Context, keys []string, limit int) ([]domain.LibraryItem, error) {
	if len(keys) == 0 {
		keys = s.cfg.LibraryKeys
	}
	if limit <= 0 {
		limit = s.cfg.Limit
	}

	flightKey := strings.Join(keys, ",") + "|" + strconv.Itoa(limit)
	result, err, _ := s.group.Do(flightKey, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), latestFetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx, keys, limit)
	})
	if err != nil {
		return nil, err
	}

	items := slices.Clone(result.([]domain.LibraryItem))
	if s.cfg.Randomize {
		rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	}
	return items, nil
}

// Sections lists the media-server libraries.
func (s *LatestService) Sections(ctx context.Context) ([]domain.LibrarySection, error) {
	sections, err := s.library.Libraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}
	return sections, nil
}

func (s *LatestService) fetch(ctx context.Context, keys []string, limit int) ([]domain.LibraryItem, error) {
	var merged []domain.LibraryItem
	for _, key := range keys {
		items, err := s.library.RecentlyAdded(ctx, key, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch recently added for section %s: %w", key, err)
		}
		merged = append(merged, items...)
	}

	slices.SortStableFunc(merged, func(a, b domain.LibraryItem) int {
		switch {
		case a.AddedAt > b.AddedAt:
			return -1
		case a.AddedAt < b.AddedAt:
			return 1
		default:
			return 0
		}
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	for i := range merged {
		item := &merged[i]
		thumb, art := domain.PickArtwork(item.Artwork, strings.EqualFold(item.Type, "episode"), s.cfg.PreferSeriesArt)
		item.ThumbURL = domain.ImageProxyURL(thumb, domain.PosterWidth)
		item.ArtURL = domain.ImageProxyURL(art, domain.ArtWidth)
	}
	return merged, nil
}
