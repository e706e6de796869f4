// Package plex is the media-server adapter.
//
// Client talks to the Plex HTTP API: it lists playback sessions for the poller, lists libraries and
// recently added items for the poster carousel, and streams artwork for the image proxy.
// Library calls go through a circuit breaker; the session poll does not, since the poll cadence
// already bounds its retry rate.
package plex
