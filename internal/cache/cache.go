// Package cache provides a small capacity-bounded in-memory cache. When full,
// the oldest inserted entry is evicted. Negative results are cacheable: a
// stored zero value still counts as a hit, which keeps failed lookups from
// being retried on every request.
package cache

import "sync"

// Bounded is a concurrency-safe key-value cache holding at most capacity
// entries.
type Bounded[V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[string]V
	order    []string // insertion order, oldest first
}

// NewBounded creates a cache with the given capacity. Capacity must be
// positive.
func NewBounded[V any](capacity int) *Bounded[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Bounded[V]{
		capacity: capacity,
		items:    make(map[string]V, capacity),
	}
}

// Get retrieves a value. The second return reports whether the key was
// present, so cached zero values are distinguishable from misses.
func (c *Bounded[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

// Set stores a value, evicting the oldest entry when the cache is full.
func (c *Bounded[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		c.items[key] = value
		return
	}

	if len(c.items) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}

	c.items[key] = value
	c.order = append(c.order, key)
}

// Len returns the number of cached entries.
func (c *Bounded[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all entries.
func (c *Bounded[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]V, c.capacity)
	c.order = nil
}
