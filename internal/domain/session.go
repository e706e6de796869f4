package domain

import "strings"

// Playback states as reported by the media server. Anything else is passed through verbatim.
const (
	StatePlaying   = "playing"
	StatePaused    = "paused"
	StateBuffering = "buffering"
)

// SessionUser is the account that started the playback.
type SessionUser struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

// Player describes the device a session is playing on.
type Player struct {
	Title             string `json:"title,omitempty"`
	Product           string `json:"product,omitempty"`
	Platform          string `json:"platform,omitempty"`
	MachineIdentifier string `json:"machineIdentifier,omitempty"`
	State             string `json:"state,omitempty"`
}

// Name returns the label used for player allow-list matching.
func (p Player) Name() string {
	for _, s := range []string{p.Title, p.Product, p.Platform} {
		if s != "" {
			return s
		}
	}
	return ""
}

// MediaInfo carries the badge data of the best available media version.
type MediaInfo struct {
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	Resolution    string `json:"resolution,omitempty"`
	VideoCodec    string `json:"videoCodec,omitempty"`
	AudioCodec    string `json:"audioCodec,omitempty"`
	AudioChannels int    `json:"audioChannels,omitempty"`
	HDR           string `json:"hdr,omitempty"`
	Atmos         bool   `json:"atmos"`
}

// Artwork holds the raw media-server image paths of an item and its parents.
type Artwork struct {
	Thumb            string `json:"thumb,omitempty"`
	Art              string `json:"art,omitempty"`
	ParentThumb      string `json:"parentThumb,omitempty"`
	ParentArt        string `json:"parentArt,omitempty"`
	GrandparentThumb string `json:"grandparentThumb,omitempty"`
	GrandparentArt   string `json:"grandparentArt,omitempty"`
}

// PlaybackSession is one raw session reported by the source. It is rebuilt on every poll.
type PlaybackSession struct {
	RatingKey     string      `json:"ratingKey"`
	Type          string      `json:"type,omitempty"`
	Title         string      `json:"title,omitempty"`
	Year          int         `json:"year,omitempty"`
	Summary       string      `json:"summary"`
	Series        string      `json:"series,omitempty"`
	SeasonNumber  *int        `json:"seasonNumber"`
	EpisodeNumber *int        `json:"episodeNumber"`
	EpisodeTitle  string      `json:"episodeTitle,omitempty"`
	User          SessionUser `json:"user"`
	Player        Player      `json:"player"`
	ProgressMs    int64       `json:"progress"`
	DurationMs    int64       `json:"duration"`
	State         string      `json:"state"`
	Media         *MediaInfo  `json:"media"`
	Artwork
}

// Identity returns the composite key used to tell sessions apart across polls.
func (s *PlaybackSession) Identity() SessionIdentity {
	return SessionIdentity{RatingKey: s.RatingKey, MachineIdentifier: s.Player.MachineIdentifier}
}

// IsEpisode reports whether the session is a TV episode.
func (s *PlaybackSession) IsEpisode() bool {
	return strings.EqualFold(s.Type, "episode")
}

// SessionIdentity is the (content, device) pair. The same content on another device is a
// different identity.
type SessionIdentity struct {
	RatingKey         string
	MachineIdentifier string
}

func (i SessionIdentity) String() string {
	return i.RatingKey + ":" + i.MachineIdentifier
}
