// file: internal/cache/cache.go
// version: 1.2.0
// guid: fb6bf0d9-cefc-4cc2-96c0-d80e32070b4d

package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is a generic TTL cache safe for concurrent use. A zero or negative
// default TTL disables caching: Set becomes a no-op and Get always misses.
// Writes sweep out expired entries at most once per default TTL, so the map
// holds little more than what was stored during the last two TTL periods.
type Cache[T any] struct {
	mu         sync.RWMutex
	items      map[string]entry[T]
	defaultTTL time.Duration
	now        func() time.Time
	lastSweep  time.Time
}

// New creates a cache with the given default TTL.
func New[T any](defaultTTL time.Duration) *Cache[T] {
	return &Cache[T]{
		items:      make(map[string]entry[T]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Enabled reports whether entries are retained at all.
func (c *Cache[T]) Enabled() bool {
	return c != nil && c.defaultTTL > 0
}

// Get retrieves a value if it exists and hasn't expired. Expired entries are
// dropped on access.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	if !c.Enabled() {
		return zero, false
	}
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.Invalidate(key)
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the default TTL.
func (c *Cache[T]) Set(key string, value T) {
	if !c.Enabled() {
		return
	}
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value with a specific TTL.
func (c *Cache[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	if c == nil || ttl <= 0 {
		return
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastSweep.IsZero() {
		c.lastSweep = now
	} else if c.defaultTTL > 0 && now.Sub(c.lastSweep) >= c.defaultTTL {
		c.purgeLocked(now)
		c.lastSweep = now
	}
	c.items[key] = entry[T]{value: value, expiresAt: now.Add(ttl)}
}

// Invalidate removes a single key.
func (c *Cache[T]) Invalidate(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Purge removes expired entries and returns how many were dropped.
func (c *Cache[T]) Purge() int {
	if c == nil {
		return 0
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(now)
}

func (c *Cache[T]) purgeLocked(now time.Time) int {
	n := 0
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[T]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
