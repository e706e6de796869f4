package domain

import (
	"encoding/json"
	"math"
	"strings"
)

// PreviewFields is the explicit allow-list of presentation overrides an admin may push
// to every display. A nil field was not supplied.
type PreviewFields struct {
	Theme            *string  `json:"theme,omitempty"`
	TitleSize        *string  `json:"title_size,omitempty"`
	TitleScale       *float64 `json:"title_scale,omitempty"`
	SynopsisScale    *float64 `json:"synopsis_scale,omitempty"`
	ShowSynopsis     *bool    `json:"show_synopsis,omitempty"`
	SynopsisMaxLines *int     `json:"synopsis_max_lines,omitempty"`
	PosterHeightVH   *int     `json:"poster_height_vh,omitempty"`
	BackdropBlurPx   *int     `json:"backdrop_blur_px,omitempty"`
	BackdropOpacity  *float64 `json:"backdrop_opacity,omitempty"`
	ShowBadges       *bool    `json:"show_badges,omitempty"`
	BadgesScale      *float64 `json:"badges_scale,omitempty"`
	ShowTMDb         *bool    `json:"show_tmdb,omitempty"`
	CarouselDwellMs  *int     `json:"carousel_dwell_ms,omitempty"`
	RandomizeOrder   *bool    `json:"randomize_order,omitempty"`
}

// IsEmpty reports whether no field survived sanitization.
func (p PreviewFields) IsEmpty() bool {
	return p == PreviewFields{}
}

const maxPreviewStringLen = 32

type previewSetter func(p *PreviewFields, raw json.RawMessage) bool

var previewSetters = map[string]previewSetter{
	"theme":              stringField(func(p *PreviewFields) **string { return &p.Theme }),
	"title_size":         stringField(func(p *PreviewFields) **string { return &p.TitleSize }),
	"title_scale":        floatField(0.25, 4, func(p *PreviewFields) **float64 { return &p.TitleScale }),
	"synopsis_scale":     floatField(0.25, 4, func(p *PreviewFields) **float64 { return &p.SynopsisScale }),
	"show_synopsis":      flagField(func(p *PreviewFields) **bool { return &p.ShowSynopsis }),
	"synopsis_max_lines": intField(1, 20, func(p *PreviewFields) **int { return &p.SynopsisMaxLines }),
	"poster_height_vh":   intField(10, 100, func(p *PreviewFields) **int { return &p.PosterHeightVH }),
	"backdrop_blur_px":   intField(0, 100, func(p *PreviewFields) **int { return &p.BackdropBlurPx }),
	"backdrop_opacity":   floatField(0, 1, func(p *PreviewFields) **float64 { return &p.BackdropOpacity }),
	"show_badges":        flagField(func(p *PreviewFields) **bool { return &p.ShowBadges }),
	"badges_scale":       floatField(0.25, 4, func(p *PreviewFields) **float64 { return &p.BadgesScale }),
	"show_tmdb":          flagField(func(p *PreviewFields) **bool { return &p.ShowTMDb }),
	"carousel_dwell_ms":  intField(500, 120_000, func(p *PreviewFields) **int { return &p.CarouselDwellMs }),
	"randomize_order":    flagField(func(p *PreviewFields) **bool { return &p.RandomizeOrder }),
}

// SanitizePreview copies the allow-listed keys of raw into a PreviewFields value.
// Unknown keys and values of the wrong type are dropped. Numbers are clamped.
func SanitizePreview(raw map[string]json.RawMessage) PreviewFields {
	var p PreviewFields
	for key, value := range raw {
		set, ok := previewSetters[key]
		if !ok {
			continue
		}
		set(&p, value)
	}
	return p
}

func stringField(field func(*PreviewFields) **string) previewSetter {
	return func(p *PreviewFields, raw json.RawMessage) bool {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false
		}
		s = strings.TrimSpace(s)
		if s == "" || len(s) > maxPreviewStringLen {
			return false
		}
		*field(p) = &s
		return true
	}
}

func floatField(lo, hi float64, field func(*PreviewFields) **float64) previewSetter {
	return func(p *PreviewFields, raw json.RawMessage) bool {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil || math.IsNaN(f) {
			return false
		}
		f = min(max(f, lo), hi)
		*field(p) = &f
		return true
	}
}

func intField(lo, hi int, field func(*PreviewFields) **int) previewSetter {
	return func(p *PreviewFields, raw json.RawMessage) bool {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return false
		}
		n := min(max(int(math.Round(f)), lo), hi)
		*field(p) = &n
		return true
	}
}

// flagField accepts a JSON boolean or the numbers 0 and 1, as stored by the admin panel.
func flagField(field func(*PreviewFields) **bool) previewSetter {
	return func(p *PreviewFields, raw json.RawMessage) bool {
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			*field(p) = &b
			return true
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil || (n != 0 && n != 1) {
			return false
		}
		b = n == 1
		*field(p) = &b
		return true
	}
}
