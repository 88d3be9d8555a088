// Package cache provides a minimal in-memory TTL cache used in front of
// upstream tool calls, so repeated lookups for the same city within the TTL
// window do not hit the external APIs again.
package cache

import (
	"sync"
	"time"
)

type item struct {
	value      any
	expiration time.Time
}

// Cache is a minimal in-memory TTL cache safe for concurrent access.
type Cache struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

// New constructs an empty Cache instance.
func New() *Cache {
	return &Cache{items: make(map[string]item), now: time.Now}
}

// Set stores a value with a time-to-live for the given key. A non-positive
// TTL stores nothing.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item{value: value, expiration: c.now().Add(ttl)}
}

// Get retrieves a non-expired value for the key, returning false if missing
// or expired. Expired entries are removed on access.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(it.expiration) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}
	return it.value, true
}

// Len returns the number of stored entries, including not-yet-evicted
// expired ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
