package plex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrInvalidImagePath = errors.New("image path must be a library artwork path")
	ErrNotAnImage       = errors.New("upstream response is not an image")
)

const (
	imageAccept   = "image/webp,image/*;q=0.8,*/*;q=0.5"
	transcodePath = "/photo/:/transcode"
)

// artworkPath matches the thumb and art paths the server puts on metadata, e.g.
// /library/metadata/1234/thumb/1700000000.
var artworkPath = regexp.MustCompile(`^/library/metadata/\d+/(thumb|art)(/\d+)?$`)

// Image is an upstream artwork response. The caller must close Body.
type Image struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// Image fetches artwork from the server, optionally resized to width. The request carries the
// server token, so only metadata artwork paths and the photo transcoder pointed at one are
// accepted, and only image responses are handed back.
func (c *Client) Image(ctx context.Context, path string, width int) (*Image, error) {
	upstreamPath, params, err := artworkRequest(path)
	if err != nil {
		return nil, err
	}
	if width > 0 {
		params.Set("width", strconv.Itoa(width))
	}

	req, err := c.newRequest(ctx, upstreamPath, params, imageAccept)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plex image request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, &StatusError{Path: upstreamPath, StatusCode: resp.StatusCode, Body: http.StatusText(resp.StatusCode)}
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err != nil || !strings.HasPrefix(mediaType, "image/") {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %q", ErrNotAnImage, upstreamPath, contentType)
	}
	return &Image{Body: resp.Body, ContentType: contentType, ContentLength: resp.ContentLength}, nil
}

// artworkRequest validates a caller-supplied path and returns the upstream path and the
// query parameters that may be forwarded with it.
func artworkRequest(raw string) (string, url.Values, error) {
	ref, err := url.Parse(raw)
	if err != nil || ref.IsAbs() || ref.Host != "" || ref.RawPath != "" {
		return "", nil, ErrInvalidImagePath
	}

	if artworkPath.MatchString(ref.Path) {
		return ref.Path, url.Values{}, nil
	}

	if ref.Path == transcodePath {
		target := ref.Query().Get("url")
		if !artworkPath.MatchString(target) {
			return "", nil, ErrInvalidImagePath
		}
		return transcodePath, url.Values{"url": {target}}, nil
	}

	return "", nil, ErrInvalidImagePath
}
