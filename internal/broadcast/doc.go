// Package broadcast implements the display connection hub using the actor pattern.
//
// A single goroutine owns the connection registry and processes commands from a channel (no mutexes).
// Events are serialized once and queued to per-connection writer goroutines; a slow or failing
// connection is evicted without affecting the others. The hub's heartbeat ticker drives a small
// per-connection liveness state machine that closes peers which stop answering pings.
package broadcast
