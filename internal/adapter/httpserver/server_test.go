package httpserver

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/nowplaying/internal/adapter/metrics"
	"github.com/pscheid92/nowplaying/internal/adapter/plex"
	"github.com/pscheid92/nowplaying/internal/adapter/tmdb"
	"github.com/pscheid92/nowplaying/internal/broadcast"
	"github.com/pscheid92/nowplaying/internal/domain"
	"github.com/pscheid92/nowplaying/internal/platform/config"
	"github.com/stretchr/testify/require"
)

const adminToken = "valid-admin-token"

var testStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeSnapshot struct {
	current *domain.NowPlaying
}

func (f *fakeSnapshot) Current() *domain.NowPlaying { return f.current }

type fakeLibrary struct {
	mu       sync.Mutex
	items    []domain.LibraryItem
	sections []domain.LibrarySection
	err      error
	gotKeys  []string
	gotLimit int
}

func (f *fakeLibrary) Latest(_ context.Context, keys []string, limit int) ([]domain.LibraryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotKeys = keys
	f.gotLimit = limit
	return f.items, f.err
}

func (f *fakeLibrary) Sections(context.Context) ([]domain.LibrarySection, error) {
	return f.sections, f.err
}

type fakeImages struct {
	body        string
	contentType string
	err         error
	gotPath     string
	gotWidth    int
}

func (f *fakeImages) Image(_ context.Context, path string, width int) (*plex.Image, error) {
	f.gotPath = path
	f.gotWidth = width
	if f.err != nil {
		return nil, f.err
	}
	return &plex.Image{
		Body:          io.NopCloser(strings.NewReader(f.body)),
		ContentType:   f.contentType,
		ContentLength: int64(len(f.body)),
	}, nil
}

type fakeHub struct {
	served  chan bool
	err     error
	clients int
}

func (f *fakeHub) ClientCount() int { return f.clients }

func (f *fakeHub) Serve(_ context.Context, conn broadcast.Conn, admin bool) error {
	f.served <- admin
	_ = conn.Close()
	return f.err
}

type fakeRatings struct {
	rating *tmdb.Rating
	err    error
	gotKey string
}

func (f *fakeRatings) Lookup(_ context.Context, ratingKey string) (*tmdb.Rating, error) {
	f.gotKey = ratingKey
	return f.rating, f.err
}

type fakeMediaServer struct {
	err error
}

func (f *fakeMediaServer) Ping(context.Context) error { return f.err }

type fakePoller struct {
	last     time.Time
	interval time.Duration
}

func (f *fakePoller) LastSuccess() time.Time  { return f.last }
func (f *fakePoller) Interval() time.Duration { return f.interval }

type fakeAuth struct {
	panics bool
}

func (f *fakeAuth) VerifyToken(_ context.Context, token string) (*domain.Principal, error) {
	if f.panics {
		panic("verifier exploded")
	}
	if token != adminToken {
		return nil, domain.ErrInvalidToken
	}
	return &domain.Principal{Subject: "admin"}, nil
}

type testServerOption func(*Dependencies, *config.Config)

func withAuth(a domain.Authenticator) testServerOption {
	return func(d *Dependencies, _ *config.Config) { d.Auth = a }
}

func withSnapshot(np *domain.NowPlaying) testServerOption {
	return func(d *Dependencies, _ *config.Config) { d.Snapshot = &fakeSnapshot{current: np} }
}

func withLibrary(l *fakeLibrary) testServerOption {
	return func(d *Dependencies, _ *config.Config) { d.Library = l }
}

func withImages(i imageFetcher) testServerOption {
	return func(d *Dependencies, _ *config.Config) { d.Images = i }
}

func withHub(h *fakeHub) testServerOption {
	return func(d *Dependencies, _ *config.Config) { d.Hub = h }
}

func withRatings(r *fakeRatings) testServerOption {
	return func(d *Dependencies, _ *config.Config) { d.Ratings = r }
}

func withMediaServer(m *fakeMediaServer) testServerOption {
	return func(d *Dependencies, _ *config.Config) { d.MediaServer = m }
}

func withPoller(p *fakePoller) testServerOption {
	return func(d *Dependencies, _ *config.Config) { d.Poller = p }
}

func withConfig(fn func(*config.Config)) testServerOption {
	return func(_ *Dependencies, cfg *config.Config) { fn(cfg) }
}

func newTestServer(t *testing.T, opts ...testServerOption) *Server {
	t.Helper()

	cfg := &config.Config{
		AppEnv:       "test",
		Port:         "0",
		APIRateLimit: 1000,
		APIRateBurst: 1000,

		WSMaxPerIP:     100,
		WSConnectRate:  100,
		WSConnectBurst: 100,
	}
	reg := metrics.NewRegistry()
	deps := Dependencies{
		Snapshot:    &fakeSnapshot{},
		Library:     &fakeLibrary{},
		Images:      &fakeImages{},
		Hub:         &fakeHub{served: make(chan bool, 1)},
		Registry:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Ratings:     &fakeRatings{},
		MediaServer: &fakeMediaServer{},
		Poller:      &fakePoller{last: testStart, interval: 3 * time.Second},
		Clock:       clockwork.NewFakeClockAt(testStart),
	}

	for _, opt := range opts {
		opt(&deps, cfg)
	}

	srv, err := NewServer(cfg, deps)
	require.NoError(t, err)
	return srv
}
