package hashing

import "sync"

// Cache is a thread-safe memo table. Values are computed at most once per key
// under normal operation; concurrent misses may compute twice, which is fine
// because the computations are pure.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// NewCache creates an empty cache.
func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]V)}
}

// GetOrCompute returns the cached value for key, calling compute on a miss.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() V) V {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return v
	}

	v = compute()

	c.mu.Lock()
	if existing, ok := c.entries[key]; ok {
		v = existing
	} else {
		c.entries[key] = v
	}
	c.mu.Unlock()

	return v
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
