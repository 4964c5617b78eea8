// Package cache provides the bounded in-process TTL cache shared by the
// icon and search subsystems.
//
// Entries live only in process memory and are independent per key: writes
// are insert/overwrite/evict only, so a single mutex around the map is the
// whole concurrency story. Each cache owns an explicit lifecycle — New,
// an optional background sweeper, Shutdown — so tests construct isolated
// instances instead of sharing process-wide state.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Cache is a TTL cache bounded by entry count. When the bound is exceeded
// the entry with the oldest insertion time is evicted. A zero maxEntries
// leaves the cache unbounded.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]entry[V]
	ttl        time.Duration
	maxEntries int

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a cache whose entries expire ttl after insertion.
func New[V any](ttl time.Duration, maxEntries int) *Cache[V] {
	return &Cache[V]{
		entries:    make(map[string]entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
	}
}

// Get returns the fresh value cached under key. Expired entries are
// treated as absent (and removed on the spot).
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if time.Since(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, refreshing its insertion time. When the
// entry count exceeds the bound, the oldest-inserted entry is evicted.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{value: value, insertedAt: time.Now()}

	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		var oldestKey string
		var oldestAt time.Time
		first := true
		for k, e := range c.entries {
			if first || e.insertedAt.Before(oldestAt) {
				oldestKey, oldestAt = k, e.insertedAt
				first = false
			}
		}
		delete(c.entries, oldestKey)
	}
}

// Delete removes the given keys. Missing keys are ignored.
func (c *Cache[V]) Delete(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
}

// Len returns the current entry count, expired entries included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes every expired entry and reports how many were dropped.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if time.Since(e.insertedAt) > c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval on a single background goroutine
// until Shutdown is called. Successive sweeps never overlap.
func (c *Cache[V]) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Sweep()
			case <-c.stop:
				return
			}
		}
	}()
}

// Shutdown stops the background sweeper. Safe to call more than once.
func (c *Cache[V]) Shutdown() {
	c.stopOnce.Do(func() { close(c.stop) })
}
