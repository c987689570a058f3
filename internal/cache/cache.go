// Package cache implements the TTL-bounded response cache keyed by
// canonical-JSON hash.
//
// DESIGN: Grounded directly on the teacher's internal/store.MemoryStore
// dual-TTL pattern (sync.RWMutex-guarded map, background cleanup()
// goroutine on a ticker, stopChan/stopped-guarded Close()), generalized
// from the teacher's (original, compressed, expansion) triple-map to a
// single bounded entry-count map with least-recently-inserted eviction
// on overflow, and a per-entry TTL instead of one store-wide TTL.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
	seq       uint64 // insertion order, for LRU-by-insertion eviction
}

// Cache is a bounded, TTL-checked response cache.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	seq        uint64
	hits       uint64
	misses     uint64

	stopChan chan struct{}
	stopped  bool
}

// New constructs a Cache bounded to maxEntries, with a background
// sweeper removing expired entries every minute.
func New(maxEntries int) *Cache {
	c := &Cache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		stopChan:   make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set inserts value under key with the given TTL, evicting the
// least-recently-inserted entry first if the cache is at capacity.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || c.maxEntries <= 0 {
		return
	}

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	c.seq++
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl), seq: c.seq}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestSeq uint64
	first := true
	for k, e := range c.entries {
		if first || e.seq < oldestSeq {
			oldestKey = k
			oldestSeq = e.seq
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// Stats returns the current hit/miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Close stops the background sweeper and releases the cache's memory.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.stopped = true
		close(c.stopChan)
		c.entries = nil
	}
}

func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.mu.Lock()
			if !c.stopped {
				now := time.Now()
				for k, e := range c.entries {
					if now.After(e.expiresAt) {
						delete(c.entries, k)
					}
				}
			}
			c.mu.Unlock()
		}
	}
}
