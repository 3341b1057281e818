// Package cache implements a small in-process TTL cache used for search
// results and geocoding lookups.  Expiry is lazy: an expired entry is
// evicted on the read that discovers it, so no background sweeper is
// needed.  All operations are safe for concurrent use.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a TTL key→value store.  Concurrent writers to the same key race
// with last-write-wins semantics, which is acceptable for cached lookups.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// Stats summarizes cache occupancy.  Expired counts entries past their TTL
// that have not yet been evicted by a read.
type Stats struct {
	TotalEntries   int `json:"total_entries"`
	ActiveEntries  int `json:"active_entries"`
	ExpiredEntries int `json:"expired_entries"`
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the value stored under key.  A read past the entry's expiry
// evicts it and reports absence, so callers never observe stale values.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for the given TTL, replacing any previous
// entry.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
}

// Delete removes a single key.  Deleting an absent key is a no-op.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Clear drops every entry.  Store mutations call this before acknowledging
// success so search results never outlive the data they were computed from.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}

// GetStats counts total, active and expired entries without evicting.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	s := Stats{TotalEntries: len(c.entries)}
	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			s.ExpiredEntries++
		}
	}
	s.ActiveEntries = s.TotalEntries - s.ExpiredEntries
	return s
}
