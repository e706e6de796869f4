package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/nowplaying/internal/adapter/auth"
	"github.com/pscheid92/nowplaying/internal/adapter/httpserver"
	"github.com/pscheid92/nowplaying/internal/adapter/metrics"
	"github.com/pscheid92/nowplaying/internal/adapter/plex"
	"github.com/pscheid92/nowplaying/internal/adapter/tmdb"
	"github.com/pscheid92/nowplaying/internal/app"
	"github.com/pscheid92/nowplaying/internal/broadcast"
	"github.com/pscheid92/nowplaying/internal/domain"
	"github.com/pscheid92/nowplaying/internal/platform/config"
	"github.com/pscheid92/nowplaying/internal/platform/logging"
	"github.com/pscheid92/nowplaying/internal/platform/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// slog is not configured yet
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupAuthenticator(cfg *config.Config, clock clockwork.Clock) domain.Authenticator {
	if !cfg.AdminEnabled() {
		slog.Warn("Admin credentials not configured, live preview is disabled")
		return nil
	}
	return auth.NewTokenAuthenticator(cfg.AdminTokenSecret, cfg.AdminUsername, clock)
}

func setupRatings(cfg *config.Config, source domain.MetadataSource, clock clockwork.Clock, m *metrics.RatingMetrics) (*tmdb.Client, error) {
	ratings, err := tmdb.NewClient(tmdb.Config{
		APIKey:   cfg.TMDBAPIKey,
		BaseURL:  cfg.TMDBBaseURL,
		Timeout:  cfg.PlexTimeout,
		CacheTTL: cfg.TMDBCacheTTL,
	}, source, clock, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create tmdb client: %w", err)
	}
	if !ratings.Enabled() {
		slog.Info("TMDB_API_KEY not set, ratings are disabled")
	}
	return ratings, nil
}

func runGracefulShutdown(cfg *config.Config, srv *httpserver.Server, stopPolling context.CancelFunc, pollerDone <-chan struct{}, hub *broadcast.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		stopPolling()
		<-pollerDone

		hub.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func run(cfg *config.Config) error {
	clock := clockwork.NewRealClock()
	registry := metrics.NewRegistry()

	plexClient, err := plex.NewClient(plex.Config{
		BaseURL: cfg.PlexURL,
		Token:   cfg.PlexToken,
		Timeout: cfg.PlexTimeout,
	}, metrics.NewLibraryMetrics(registry))
	if err != nil {
		return fmt.Errorf("failed to create plex client: %w", err)
	}

	wsMetrics := metrics.NewWebSocketMetrics(registry)
	snapshot := &app.Snapshot{}
	relay := app.NewPreviewRelay(wsMetrics)
	hub := broadcast.NewHub(broadcast.Config{
		HeartbeatInterval: cfg.HeartbeatInterval,
		MaxClients:        cfg.MaxConnections,
	}, snapshot.Event, relay.Handle, clock, wsMetrics)

	if cfg.PollInterval < app.MinPollInterval {
		slog.Warn("Poll interval below minimum, clamping", "configured", cfg.PollInterval, "effective", app.MinPollInterval)
	}
	poller := app.NewPoller(plexClient, hub, snapshot, app.PollerConfig{
		Interval: cfg.PollInterval,
		Filters: app.Filters{
			Users:   cfg.UserFilters,
			Players: cfg.PlayerFilters,
		},
		PreferSeriesArt: cfg.PreferSeriesArt,
	}, clock, metrics.NewPollMetrics(registry))

	latest := app.NewLatestService(plexClient, app.LatestConfig{
		LibraryKeys:     cfg.LibraryKeys,
		Limit:           cfg.LatestLimit,
		Randomize:       cfg.RandomizeOrder,
		PreferSeriesArt: cfg.PreferSeriesArt,
	})

	ratings, err := setupRatings(cfg, plexClient, clock, metrics.NewRatingMetrics(registry))
	if err != nil {
		return err
	}

	srv, err := httpserver.NewServer(cfg, httpserver.Dependencies{
		Snapshot:    snapshot,
		Library:     latest,
		Images:      plexClient,
		Hub:         hub,
		Ratings:     ratings,
		MediaServer: plexClient,
		Poller:      poller,
		Auth:        setupAuthenticator(cfg, clock),
		Registry:    registry,
		HTTPMetrics: metrics.NewHTTPMetrics(registry),
		Clock:       clock,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	pollCtx, stopPolling := context.WithCancel(context.Background())
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		poller.Run(pollCtx)
	}()
	slog.Info("Session poller started", "interval", poller.Interval(), "user_filters", len(cfg.UserFilters), "player_filters", len(cfg.PlayerFilters))

	done := runGracefulShutdown(cfg, srv, stopPolling, pollerDone, hub)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stopPolling()
		hub.Stop()
		return err
	}

	<-done
	return nil
}

func main() {
	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().String())

	if err := run(cfg); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}
