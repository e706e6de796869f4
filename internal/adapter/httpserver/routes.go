package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/nowplaying/internal/adapter/metrics"
	apperrors "github.com/pscheid92/nowplaying/internal/platform/errors"
)

const wsPath = "/ws"

func (s *Server) registerRoutes() {
	s.echo.Pre(upgradeGuard)

	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.httpMetrics.Middleware())
	s.echo.Use(apperrors.Middleware(s.httpMetrics.ErrorsTotal))
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         63072000,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	s.echo.GET(wsPath, s.handleWebSocket)

	s.registerHealthRoutes()
	s.registerAPIRoutes()

	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler(s.registry)))
}

func (s *Server) registerAPIRoutes() {
	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	api := s.echo.Group("/api",
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "OPTIONS"},
			AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
		}),
		newRateLimiter(s.config.APIRateLimit, s.config.APIRateBurst),
	)

	api.GET("/health", s.handleAPIHealth)
	api.GET("/now-playing", s.handleNowPlaying)
	api.GET("/latest", s.handleLatest)
	api.GET("/image", s.handleImage)
	api.GET("/tmdb/:ratingKey", s.handleRating)
	api.GET("/auth/status", s.handleAuthStatus)
	api.GET("/plex/libraries", s.handleLibraries, s.requireAdmin)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURIPath: true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health/live"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
