package domain

import "context"

// SessionSource returns the current raw playback sessions from the media server.
// A failed call is an expected outcome and is retried by the next poll.
type SessionSource interface {
	ListSessions(ctx context.Context) ([]PlaybackSession, error)
}

// Principal is an authenticated admin identity.
type Principal struct {
	Subject string
}

// Authenticator verifies an admin bearer token. Any error means "not admin".
type Authenticator interface {
	VerifyToken(ctx context.Context, token string) (*Principal, error)
}

// EventPublisher fans an event out to every connected display.
type EventPublisher interface {
	Broadcast(event Event)
}
