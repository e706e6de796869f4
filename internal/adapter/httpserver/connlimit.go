package httpserver

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleTTL         = 10 * time.Minute
)

// Reasons an upgrade is refused before it reaches the hub.
const (
	denyPerIP = "per_ip_limit"
	denyRate  = "rate_limit"
)

type ipEntry struct {
	open     int
	limiter  *rate.Limiter
	lastSeen time.Time
}

// connectionLimiter caps concurrent WebSocket connections and the rate of new ones per client
// IP. The global cap is enforced by the hub itself.
type connectionLimiter struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	ips       map[string]*ipEntry
	maxPerIP  int
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

func newConnectionLimiter(maxPerIP int, connectsPerSecond float64, burst int, clock clockwork.Clock) *connectionLimiter {
	return &connectionLimiter{
		clock:     clock,
		ips:       make(map[string]*ipEntry),
		maxPerIP:  maxPerIP,
		rate:      rate.Limit(connectsPerSecond),
		burst:     burst,
		cleanupAt: clock.Now().Add(limiterCleanupInterval),
	}
}

// acquire reserves a connection slot for ip. It returns the deny reason when the caller must
// be refused; on success the caller owns a slot until release.
func (l *connectionLimiter) acquire(ip string) (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.After(l.cleanupAt) {
		l.cleanup(now)
		l.cleanupAt = now.Add(limiterCleanupInterval)
	}

	entry, ok := l.ips[ip]
	if !ok {
		entry = &ipEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.ips[ip] = entry
	}
	entry.lastSeen = now

	if !entry.limiter.AllowN(now, 1) {
		return false, denyRate
	}
	if entry.open >= l.maxPerIP {
		return false, denyPerIP
	}
	entry.open++
	return true, ""
}

func (l *connectionLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.ips[ip]; ok && entry.open > 0 {
		entry.open--
		entry.lastSeen = l.clock.Now()
	}
}

func (l *connectionLimiter) openFor(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.ips[ip]; ok {
		return entry.open
	}
	return 0
}

// cleanup drops idle entries without open connections. Must be called with mu held.
func (l *connectionLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-limiterIdleTTL)
	for ip, entry := range l.ips {
		if entry.open == 0 && entry.lastSeen.Before(cutoff) {
			delete(l.ips, ip)
		}
	}
}
