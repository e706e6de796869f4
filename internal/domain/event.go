package domain

import "encoding/json"

// Wire message types. These strings are part of the client protocol.
const (
	TypeNowPlaying         = "NOW_PLAYING"
	TypeProgress           = "PROGRESS"
	TypeIdle               = "IDLE"
	TypeConfigPreview      = "CONFIG_PREVIEW"
	TypeConfigPreviewClear = "CONFIG_PREVIEW_CLEAR"
)

// NowPlaying is the fully resolved payload of a SessionStarted event.
type NowPlaying struct {
	PlaybackSession
	ThumbURL  *string `json:"thumbUrl"`
	ArtURL    *string `json:"artUrl"`
	Timestamp int64   `json:"ts"`
}

// Identity returns the identity of the underlying session.
func (n *NowPlaying) Identity() SessionIdentity {
	return n.PlaybackSession.Identity()
}

// Progress is the identity-scoped payload of a ProgressUpdate event.
type Progress struct {
	RatingKey         string `json:"ratingKey"`
	MachineIdentifier string `json:"machineIdentifier"`
	ProgressMs        int64  `json:"progress"`
	DurationMs        int64  `json:"duration"`
	State             string `json:"state"`
	Timestamp         int64  `json:"ts"`
}

// Event is a broadcast event. The set of implementations is closed.
type Event interface {
	// Type returns the wire message type.
	Type() string
	// Payload returns the wire payload, or nil when the message carries none.
	Payload() any

	isEvent()
}

type SessionStarted struct{ NowPlaying NowPlaying }

type ProgressUpdate struct{ Progress Progress }

type SessionEnded struct{}

type ConfigPreview struct{ Fields PreviewFields }

type ConfigPreviewCleared struct{}

func (SessionStarted) Type() string       { return TypeNowPlaying }
func (ProgressUpdate) Type() string       { return TypeProgress }
func (SessionEnded) Type() string         { return TypeIdle }
func (ConfigPreview) Type() string        { return TypeConfigPreview }
func (ConfigPreviewCleared) Type() string { return TypeConfigPreviewClear }

func (e SessionStarted) Payload() any     { return e.NowPlaying }
func (e ProgressUpdate) Payload() any     { return e.Progress }
func (SessionEnded) Payload() any         { return nil }
func (e ConfigPreview) Payload() any      { return e.Fields }
func (ConfigPreviewCleared) Payload() any { return nil }

func (SessionStarted) isEvent()       {}
func (ProgressUpdate) isEvent()       {}
func (SessionEnded) isEvent()         {}
func (ConfigPreview) isEvent()        {}
func (ConfigPreviewCleared) isEvent() {}

// Envelope is the JSON shape of every message on the wire.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeEvent serializes an event into its wire envelope.
func EncodeEvent(e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Payload())
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: e.Type(), Payload: payload})
}
