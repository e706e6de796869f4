// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (session.go, event.go, preview.go, source.go, errors.go) hold the
// playback session model, the broadcast event variants and their wire envelope, and the
// consumer-side contracts for the external session source and authenticator.
// No I/O lives here.
package domain
