package cache

import (
	"sync"
	"time"
)

// entry stores a cached value with the time it was written and its TTL.
type entry struct {
	value     any
	writtenAt time.Time
	ttl       time.Duration
}

func (e entry) valid(now time.Time) bool {
	return now.Sub(e.writtenAt) <= e.ttl
}

// Cache is a key/value store with per-entry expiry.
// Expired entries are removed lazily when they are read; there is no
// background sweeper.
type Cache struct {
	now func() time.Time

	mu    sync.RWMutex
	items map[string]entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{now: time.Now, items: make(map[string]entry)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores value under key, overwriting any previous entry and resetting
// its expiry clock.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.items[key] = entry{value: value, writtenAt: c.now(), ttl: ttl}
	c.mu.Unlock()
}

// Get returns the value for key if present and unexpired. An expired entry
// is deleted and reported as a miss.
func (c *Cache) Get(key string) (any, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.valid(now) {
		return e.value, true
	}

	c.mu.Lock()
	// Re-check under the write lock: a concurrent Set may have refreshed it.
	if cur, ok := c.items[key]; ok && !cur.valid(now) {
		delete(c.items, key)
	}
	c.mu.Unlock()
	return nil, false
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones that
// have not been read since they expired.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// GetAs is Get with a type assertion. A value of a different type is a miss.
func GetAs[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
