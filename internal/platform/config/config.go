package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const minTokenSecretLength = 32

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	PlexURL     string        `env:"PLEX_URL"`
	PlexToken   string        `env:"PLEX_TOKEN"`
	PlexTimeout time.Duration `env:"PLEX_TIMEOUT" default:"5s"`

	UserFilters     []string      `env:"USER_FILTERS"`
	PlayerFilters   []string      `env:"PLAYER_FILTERS"`
	LibraryKeys     []string      `env:"LIBRARY_KEYS"`
	LatestLimit     int           `env:"LATEST_LIMIT" default:"40"`
	RandomizeOrder  bool          `env:"RANDOMIZE_ORDER" default:"false"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" default:"3s"`
	PreferSeriesArt bool          `env:"PREFER_SERIES_ART" default:"true"`

	TMDBAPIKey   string        `env:"TMDB_API_KEY"`
	TMDBBaseURL  string        `env:"TMDB_BASE_URL" default:"https://api.themoviedb.org/3"`
	TMDBCacheTTL time.Duration `env:"TMDB_CACHE_TTL" default:"6h"`

	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" default:"30s"`
	MaxConnections    int           `env:"MAX_CONNECTIONS" default:"1000"`
	WSMaxPerIP        int           `env:"WS_MAX_PER_IP" default:"20"`
	WSConnectRate     float64       `env:"WS_CONNECT_RATE" default:"1"`
	WSConnectBurst    int           `env:"WS_CONNECT_BURST" default:"10"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`

	AdminUsername    string `env:"ADMIN_USERNAME"`
	AdminTokenSecret string `env:"ADMIN_TOKEN_SECRET"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS"`
	APIRateLimit   float64  `env:"API_RATE_LIMIT" default:"10"`
	APIRateBurst   int      `env:"API_RATE_BURST" default:"20"`
}

// AdminEnabled reports whether admin tokens can be verified at all.
func (c *Config) AdminEnabled() bool {
	return c.AdminUsername != "" && c.AdminTokenSecret != ""
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.UserFilters = compact(cfg.UserFilters)
	cfg.PlayerFilters = compact(cfg.PlayerFilters)
	cfg.LibraryKeys = compact(cfg.LibraryKeys)
	cfg.AllowedOrigins = compact(cfg.AllowedOrigins)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"PLEX_URL":   cfg.PlexURL,
		"PLEX_TOKEN": cfg.PlexToken,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	u, err := url.Parse(cfg.PlexURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("PLEX_URL must be an absolute http(s) URL")
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}

	if cfg.PollInterval <= 0 {
		return errors.New("POLL_INTERVAL must be positive")
	}
	if cfg.HeartbeatInterval <= 0 {
		return errors.New("HEARTBEAT_INTERVAL must be positive")
	}
	if cfg.TMDBCacheTTL <= 0 {
		return errors.New("TMDB_CACHE_TTL must be positive")
	}
	if cfg.PlexTimeout <= 0 {
		return errors.New("PLEX_TIMEOUT must be positive")
	}
	if cfg.LatestLimit < 1 || cfg.LatestLimit > 500 {
		return fmt.Errorf("LATEST_LIMIT must be between 1 and 500, got %d", cfg.LatestLimit)
	}
	if cfg.MaxConnections < 1 {
		return errors.New("MAX_CONNECTIONS must be at least 1")
	}
	if cfg.WSMaxPerIP < 1 || cfg.WSConnectRate <= 0 || cfg.WSConnectBurst < 1 {
		return errors.New("WS_MAX_PER_IP, WS_CONNECT_RATE and WS_CONNECT_BURST must be positive")
	}
	if cfg.APIRateLimit <= 0 || cfg.APIRateBurst < 1 {
		return errors.New("API_RATE_LIMIT and API_RATE_BURST must be positive")
	}

	if (cfg.AdminUsername == "") != (cfg.AdminTokenSecret == "") {
		return errors.New("ADMIN_USERNAME and ADMIN_TOKEN_SECRET must be set together")
	}
	if cfg.AdminTokenSecret != "" && len(cfg.AdminTokenSecret) < minTokenSecretLength {
		return fmt.Errorf("ADMIN_TOKEN_SECRET must be at least %d characters", minTokenSecretLength)
	}

	if cfg.AppEnv == "production" && len(cfg.AllowedOrigins) == 0 {
		slog.Warn("ALLOWED_ORIGINS is empty in production, accepting any origin")
	}

	return nil
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
