package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/nowplaying/internal/adapter/metrics"
	"github.com/pscheid92/nowplaying/internal/adapter/plex"
	"github.com/pscheid92/nowplaying/internal/adapter/tmdb"
	"github.com/pscheid92/nowplaying/internal/broadcast"
	"github.com/pscheid92/nowplaying/internal/domain"
	"github.com/pscheid92/nowplaying/internal/platform/config"
)

type snapshotReader interface {
	Current() *domain.NowPlaying
}

type libraryService interface {
	Latest(ctx context.Context, keys []string, limit int) ([]domain.LibraryItem, error)
	Sections(ctx context.Context) ([]domain.LibrarySection, error)
}

type imageFetcher interface {
	Image(ctx context.Context, path string, width int) (*plex.Image, error)
}

type connectionHub interface {
	Serve(ctx context.Context, conn broadcast.Conn, admin bool) error
	ClientCount() int
}

type ratingLookup interface {
	Lookup(ctx context.Context, ratingKey string) (*tmdb.Rating, error)
}

type mediaServer interface {
	Ping(ctx context.Context) error
}

type pollStatus interface {
	LastSuccess() time.Time
	Interval() time.Duration
}

// Dependencies are the collaborators the HTTP layer delegates to.
// Auth may be nil, in which case no connection is ever an admin.
type Dependencies struct {
	Snapshot    snapshotReader
	Library     libraryService
	Images      imageFetcher
	Hub         connectionHub
	Ratings     ratingLookup
	MediaServer mediaServer
	Poller      pollStatus
	Auth        domain.Authenticator
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics
	Clock       clockwork.Clock
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	snapshot snapshotReader
	library  libraryService
	images   imageFetcher
	hub      connectionHub
	ratings  ratingLookup
	auth     domain.Authenticator

	mediaServer mediaServer
	poller      pollStatus

	registry    *prometheus.Registry
	httpMetrics *metrics.HTTPMetrics

	upgrader    websocket.Upgrader
	connLimiter *connectionLimiter
	clock       clockwork.Clock
	startTime   time.Time
}

func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Snapshot == nil || deps.Library == nil || deps.Images == nil || deps.Hub == nil || deps.Ratings == nil {
		return nil, errors.New("httpserver: snapshot, library, images, ratings and hub are required")
	}
	if deps.MediaServer == nil || deps.Poller == nil {
		return nil, errors.New("httpserver: media server and poller are required for health reporting")
	}
	if deps.Registry == nil || deps.HTTPMetrics == nil {
		return nil, errors.New("httpserver: metrics registry is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:        e,
		config:      cfg,
		snapshot:    deps.Snapshot,
		library:     deps.Library,
		images:      deps.Images,
		hub:         deps.Hub,
		ratings:     deps.Ratings,
		auth:        deps.Auth,
		mediaServer: deps.MediaServer,
		poller:      deps.Poller,
		registry:    deps.Registry,
		httpMetrics: deps.HTTPMetrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     newCheckOrigin(cfg.AllowedOrigins, cfg.AppEnv != "production"),
		},
		connLimiter: newConnectionLimiter(cfg.WSMaxPerIP, cfg.WSConnectRate, cfg.WSConnectBurst, clock),
		clock:       clock,
		startTime:   clock.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones. Upgraded WebSocket
// connections are hijacked and are closed by the hub, not here.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
