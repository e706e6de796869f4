// Package tmdb looks up public audience ratings on The Movie Database for media-server items.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/nowplaying/internal/adapter/metrics"
	"github.com/pscheid92/nowplaying/internal/domain"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	DefaultCacheTTL = 6 * time.Hour

	defaultTimeout = 5 * time.Second
	guidPrefix     = "tmdb://"
	breakerName    = "tmdb"
)

// Config configures the rating client. An empty APIKey disables lookups.
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Rating is the vote summary of one title. Rating and Votes are nil when TMDb has none.
type Rating struct {
	ID     string   `json:"id"`
	Type   string   `json:"type"`
	Rating *float64 `json:"rating"`
	Votes  *int     `json:"votes"`
}

type titleRef struct {
	id   string
	kind string
}

// Client resolves a media-server rating key to its TMDb title and fetches its rating.
type Client struct {
	apiKey  string
	baseURL *url.URL
	timeout time.Duration
	http    *http.Client
	source  domain.MetadataSource
	breaker *gobreaker.CircuitBreaker
	cache   *cache
	group   singleflight.Group
	metrics *metrics.RatingMetrics
}

func NewClient(cfg Config, source domain.MetadataSource, clock clockwork.Clock, m *metrics.RatingMetrics) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid TMDb base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid TMDb base URL scheme %q", u.Scheme)
	}

	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: u,
		timeout: cfg.Timeout,
		http:    &http.Client{Timeout: cfg.Timeout},
		source:  source,
		cache:   newCache(clock, cfg.CacheTTL),
		metrics: m,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			m.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	m.BreakerState.WithLabelValues(breakerName).Set(float64(gobreaker.StateClosed))

	return c, nil
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Lookup returns the rating of the item with the given rating key, or nil when lookups are
// disabled or the item has no TMDb match. Both hits and misses are cached.
func (c *Client) Lookup(ctx context.Context, ratingKey string) (*Rating, error) {
	if !c.Enabled() {
		return nil, nil
	}
	if rating, ok := c.cache.get(ratingKey); ok {
		c.metrics.Lookups.WithLabelValues("cached").Inc()
		return rating, nil
	}

	result, err, _ := c.group.Do(ratingKey, func() (any, error) {
		// Two round trips to the media server plus one to TMDb.
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*c.timeout)
		defer cancel()
		return c.lookup(lookupCtx, ratingKey)
	})
	if err != nil {
		c.metrics.Lookups.WithLabelValues("error").Inc()
		return nil, err
	}
	return result.(*Rating), nil
}

func (c *Client) lookup(ctx context.Context, ratingKey string) (*Rating, error) {
	ref, err := c.resolve(ctx, ratingKey)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		c.metrics.Lookups.WithLabelValues("unmatched").Inc()
		c.cache.set(ratingKey, nil)
		return nil, nil
	}

	rating, err := c.fetch(ctx, *ref)
	if err != nil {
		return nil, err
	}
	if rating == nil {
		c.metrics.Lookups.WithLabelValues("unmatched").Inc()
	} else {
		c.metrics.Lookups.WithLabelValues("fetched").Inc()
	}
	c.cache.set(ratingKey, rating)
	return rating, nil
}

// resolve finds the TMDb title for a rating key. Episode GUIDs point at the episode, which has
// no rating of its own, so episodes resolve through their show first.
func (c *Client) resolve(ctx context.Context, ratingKey string) (*titleRef, error) {
	ids, err := c.source.ExternalIDs(ctx, ratingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load external ids for %s: %w", ratingKey, err)
	}

	if ids.Type == "episode" && ids.GrandparentRatingKey != "" {
		show, err := c.source.ExternalIDs(ctx, ids.GrandparentRatingKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load external ids for show %s: %w", ids.GrandparentRatingKey, err)
		}
		if ref := findTitle(show); ref != nil {
			return ref, nil
		}
	}
	return findTitle(ids), nil
}

func findTitle(ids *domain.ExternalIDs) *titleRef {
	for _, guid := range ids.GUIDs {
		id, ok := strings.CutPrefix(guid, guidPrefix)
		if !ok {
			continue
		}
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			continue
		}
		kind := "tv"
		if ids.Type == "movie" {
			kind = "movie"
		}
		return &titleRef{id: id, kind: kind}
	}
	return nil
}

type titleResponse struct {
	VoteAverage *float64 `json:"vote_average"`
	VoteCount   *int     `json:"vote_count"`
}

// fetch returns nil for titles TMDb does not know.
func (c *Client) fetch(ctx context.Context, ref titleRef) (*Rating, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		u := *c.baseURL
		u.Path = u.Path + "/" + ref.kind + "/" + ref.id
		u.RawQuery = url.Values{"api_key": {c.apiKey}}.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("tmdb request for %s/%s failed: %w", ref.kind, ref.id, redact(err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return (*Rating)(nil), nil
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("tmdb %s/%s returned %d", ref.kind, ref.id, resp.StatusCode)
		}

		var body titleResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("failed to decode tmdb response for %s/%s: %w", ref.kind, ref.id, err)
		}
		return &Rating{ID: ref.id, Type: ref.kind, Rating: body.VoteAverage, Votes: body.VoteCount}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Rating), nil
}

// redact drops the request URL, which carries the API key, from transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
