package httpserver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/nowplaying/internal/adapter/plex"
	"github.com/pscheid92/nowplaying/internal/domain"
	apperrors "github.com/pscheid92/nowplaying/internal/platform/errors"
	"github.com/sony/gobreaker"
)

const (
	maxLatestLimit    = 500
	maxImageWidth     = 4000
	imageCacheControl = "public, max-age=3600"
)

func (s *Server) handleAPIHealth(c echo.Context) error {
	if err := c.JSON(http.StatusOK, map[string]bool{"ok": true}); err != nil {
		return fmt.Errorf("failed to write health response: %w", err)
	}
	return nil
}

// handleNowPlaying returns the freshest resolved session, or JSON null when idle.
func (s *Server) handleNowPlaying(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	if err := c.JSON(http.StatusOK, s.snapshot.Current()); err != nil {
		return fmt.Errorf("failed to write now playing response: %w", err)
	}
	return nil
}

func (s *Server) handleLatest(c echo.Context) error {
	var keys []string
	if raw := c.QueryParam("keys"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLatestLimit {
			return apperrors.ValidationError(fmt.Sprintf("limit must be between 1 and %d", maxLatestLimit)).
				WithField("limit", raw)
		}
		limit = n
	}

	items, err := s.library.Latest(c.Request().Context(), keys, limit)
	if err != nil {
		return upstreamError("failed to load recently added items", err)
	}
	if items == nil {
		items = []domain.LibraryItem{}
	}

	if err := c.JSON(http.StatusOK, items); err != nil {
		return fmt.Errorf("failed to write latest response: %w", err)
	}
	return nil
}

func (s *Server) handleLibraries(c echo.Context) error {
	sections, err := s.library.Sections(c.Request().Context())
	if err != nil {
		return upstreamError("failed to list libraries", err)
	}
	if sections == nil {
		sections = []domain.LibrarySection{}
	}

	if err := c.JSON(http.StatusOK, sections); err != nil {
		return fmt.Errorf("failed to write libraries response: %w", err)
	}
	return nil
}

// handleImage proxies artwork from the media server so the server token never reaches browsers.
func (s *Server) handleImage(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		return apperrors.ValidationError("missing path")
	}

	width := 0
	if raw := c.QueryParam("width"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxImageWidth {
			return apperrors.ValidationError(fmt.Sprintf("width must be between 1 and %d", maxImageWidth)).
				WithField("width", raw)
		}
		width = n
	}

	img, err := s.images.Image(c.Request().Context(), path, width)
	if err != nil {
		if errors.Is(err, plex.ErrInvalidImagePath) {
			return apperrors.ValidationError(err.Error()).WithField("path", path)
		}
		return upstreamError("failed to fetch image", err).WithField("path", path)
	}
	defer func() { _ = img.Body.Close() }()

	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	header := c.Response().Header()
	header.Set(echo.HeaderCacheControl, imageCacheControl)
	if img.ContentLength > 0 {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(img.ContentLength, 10))
	}

	header.Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)
	if _, err := io.Copy(c.Response(), img.Body); err != nil {
		// Headers are already sent; the client sees a truncated body.
		slog.DebugContext(c.Request().Context(), "Image stream interrupted", "path", path, "error", err)
	}
	return nil
}

// handleRating returns the TMDb vote summary of an item, or an empty object when there is none.
func (s *Server) handleRating(c echo.Context) error {
	ratingKey := c.Param("ratingKey")
	if !isRatingKey(ratingKey) {
		return apperrors.ValidationError("rating key must be numeric").WithField("ratingKey", ratingKey)
	}

	rating, err := s.ratings.Lookup(c.Request().Context(), ratingKey)
	if err != nil {
		return upstreamError("failed to fetch rating", err).WithField("ratingKey", ratingKey)
	}

	var response any = struct{}{}
	if rating != nil {
		response = rating
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write rating response: %w", err)
	}
	return nil
}

func isRatingKey(s string) bool {
	if s == "" || len(s) > 20 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *Server) handleAuthStatus(c echo.Context) error {
	response := map[string]bool{
		"admin_enabled": s.auth != nil,
		"authed":        s.isAdmin(c.Request().Context(), bearerToken(c.Request())),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write auth status response: %w", err)
	}
	return nil
}

// upstreamError maps media-server failures onto structured HTTP errors.
func upstreamError(message string, err error) *apperrors.Error {
	var statusErr *plex.StatusError
	switch {
	case errors.Is(err, domain.ErrSourceNotReady),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperrors.UnavailableError(message, err)
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		return apperrors.NotFoundError(message)
	default:
		return apperrors.ExternalError(message, err)
	}
}
