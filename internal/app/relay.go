package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pscheid92/nowplaying/internal/adapter/metrics"
	"github.com/pscheid92/nowplaying/internal/domain"
)

// Command is an inbound admin command. The set of implementations is closed.
type Command interface{ isCommand() }

type baseCommand struct{}

func (baseCommand) isCommand() {}

// SetPreview carries the raw, unsanitized preview fields.
type SetPreview struct {
	baseCommand
	Fields map[string]json.RawMessage
}

type ClearPreview struct {
	baseCommand
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ParseCommand decodes an inbound frame. Anything other than a well-formed preview command
// yields domain.ErrInvalidCommand.
func ParseCommand(data []byte) (Command, error) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCommand, err)
	}

	switch msg.Type {
	case domain.TypeConfigPreview:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(msg.Payload, &fields); err != nil || fields == nil {
			return nil, fmt.Errorf("%w: payload must be an object", domain.ErrInvalidCommand)
		}
		return SetPreview{Fields: fields}, nil
	case domain.TypeConfigPreviewClear:
		return ClearPreview{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidCommand, msg.Type)
	}
}

// PreviewRelay turns admin preview commands into broadcast events. It keeps no state:
// a preview exists only while in transit.
type PreviewRelay struct {
	metrics *metrics.WebSocketMetrics
}

func NewPreviewRelay(m *metrics.WebSocketMetrics) *PreviewRelay {
	return &PreviewRelay{metrics: m}
}

// Handle returns the event to relay to every display, or nil when the message is dropped.
func (r *PreviewRelay) Handle(ctx context.Context, admin bool, data []byte) domain.Event {
	if !admin {
		slog.DebugContext(ctx, "Relay: dropping message from non-admin connection")
		r.metrics.InboundCommands.WithLabelValues("forbidden").Inc()
		return nil
	}

	cmd, err := ParseCommand(data)
	if err != nil {
		slog.DebugContext(ctx, "Relay: ignoring invalid command", "error", err)
		r.metrics.InboundCommands.WithLabelValues("invalid").Inc()
		return nil
	}

	switch c := cmd.(type) {
	case SetPreview:
		fields := domain.SanitizePreview(c.Fields)
		if fields.IsEmpty() {
			r.metrics.InboundCommands.WithLabelValues("empty").Inc()
			return nil
		}
		r.metrics.InboundCommands.WithLabelValues("preview").Inc()
		return domain.ConfigPreview{Fields: fields}
	case ClearPreview:
		r.metrics.InboundCommands.WithLabelValues("clear").Inc()
		return domain.ConfigPreviewCleared{}
	default:
		return nil
	}
}
