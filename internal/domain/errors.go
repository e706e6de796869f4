package domain

import "errors"

var (
	ErrInvalidCommand = errors.New("invalid command")
	ErrNotAdmin       = errors.New("admin privileges required")
	ErrInvalidToken   = errors.New("invalid token")
	ErrSourceNotReady = errors.New("session source not configured")
)
