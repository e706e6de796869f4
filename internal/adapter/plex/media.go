package plex

import (
	"strings"

	"github.com/pscheid92/nowplaying/internal/domain"
)

// mediaInfo extracts badge data from the widest media version, or nil when there is none.
func mediaInfo(medias []plexMedia) *domain.MediaInfo {
	if len(medias) == 0 {
		return nil
	}

	best := &medias[0]
	for i := range medias[1:] {
		if medias[i+1].Width > best.Width {
			best = &medias[i+1]
		}
	}

	var streams []plexStream
	if len(best.Part) > 0 {
		streams = best.Part[0].Stream
	}

	return &domain.MediaInfo{
		Width:         int(best.Width),
		Height:        int(best.Height),
		Resolution:    resolutionLabel(string(best.VideoResolution), int(best.Height)),
		VideoCodec:    strings.ToUpper(best.VideoCodec),
		AudioCodec:    strings.ToUpper(best.AudioCodec),
		AudioChannels: int(best.AudioChannels),
		HDR:           detectHDR(best, streams),
		Atmos:         detectAtmos(best, streams),
	}
}

func resolutionLabel(reported string, height int) string {
	if reported != "" {
		return strings.ToUpper(reported)
	}
	switch {
	case height >= 2160:
		return "4K"
	case height >= 1440:
		return "1440P"
	case height >= 1080:
		return "1080P"
	case height >= 720:
		return "720P"
	default:
		return ""
	}
}

func detectHDR(m *plexMedia, streams []plexStream) string {
	if dr := strings.Join(strings.Fields(strings.ToUpper(m.VideoDynamicRange)), " "); dr != "" {
		return dr
	}
	for _, s := range streams {
		switch strings.ToUpper(s.ColorTrc) {
		case "SMPTE2084":
			return "HDR10"
		case "ARIB-STD-B67":
			return "HLG"
		}
		if s.DOVIPresent == "1" || strings.EqualFold(string(s.DOVIPresent), "true") {
			return "DOLBY VISION"
		}
	}
	return ""
}

func detectAtmos(m *plexMedia, streams []plexStream) bool {
	if strings.EqualFold(m.AudioCodec, "truehd") && m.AudioChannels >= 8 {
		return true
	}
	for _, s := range streams {
		title := s.DisplayTitle
		if title == "" {
			title = s.ExtendedDisplayTitle
		}
		if strings.Contains(strings.ToUpper(title), "ATMOS") {
			return true
		}
	}
	return false
}
