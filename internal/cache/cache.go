package cache

import (
	"sync"
	"time"
)

// DefaultTTL is how long an entry stays valid
const DefaultTTL = 30 * time.Minute

// Clock returns the current time
type Clock func() time.Time

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// ExpiringCache is an in-process key/value store with a fixed per-entry TTL.
// Expired entries are evicted lazily when read; there is no background
// sweep. Every caller must behave correctly when the cache always misses.
type ExpiringCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     Clock
}

// New creates a cache. A nil clock uses time.Now.
func New(ttl time.Duration, clock Clock) *ExpiringCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &ExpiringCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     clock,
	}
}

// Get returns the value for key, deleting it if it has expired
func (c *ExpiringCache) Get(key string) (interface{}, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key until now+TTL
func (c *ExpiringCache) Set(key string, value interface{}) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Len returns the number of stored entries, expired ones included
func (c *ExpiringCache) Len() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Lookup is a typed Get. A stored value of another type counts as a miss.
func Lookup[T any](c *ExpiringCache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
