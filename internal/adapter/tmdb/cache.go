package tmdb

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const maxCacheEntries = 2048

type cacheEntry struct {
	rating  *Rating
	expires time.Time
}

// cache remembers lookups by rating key, including misses, until their TTL runs out.
type cache struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newCache(clock clockwork.Clock, ttl time.Duration) *cache {
	return &cache{clock: clock, ttl: ttl, entries: make(map[string]cacheEntry)}
}

func (c *cache) get(key string) (*Rating, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.clock.Now().Before(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.rating, true
}

func (c *cache) set(key string, rating *Rating) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if len(c.entries) >= maxCacheEntries {
		c.evict(now)
	}
	c.entries[key] = cacheEntry{rating: rating, expires: now.Add(c.ttl)}
}

// evict drops expired entries, or an arbitrary one when none has expired.
func (c *cache) evict(now time.Time) {
	for key, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) < maxCacheEntries {
		return
	}
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
