// Package app provides the application service layer.
//
// Drives the playback loop: the poller fetches sessions, MatchSession picks the one to display,
// and the Reconciler diffs it against the last announced state to emit at most one event per tick.
// Also holds the admin preview relay and the recently-added library service.
// Depends on domain interfaces, not concrete implementations.
package app
