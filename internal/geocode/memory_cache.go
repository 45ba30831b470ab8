package geocode

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory CacheStore for tests and cacheless
// deployments. Expired entries are reported as misses on read; nothing
// actively purges them.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	loc       Location
	expiresAt time.Time // zero means no expiry
}

var _ CacheStore = (*MemoryCache)(nil)

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get fetches a cached location, treating expired entries as absent.
func (c *MemoryCache) Get(_ context.Context, key string) (*Location, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil, nil
	}

	loc := entry.loc
	return &loc, nil
}

// Set upserts a location. Last writer wins on concurrent updates.
func (c *MemoryCache) Set(_ context.Context, key string, loc *Location, ttl time.Duration) error {
	entry := memoryEntry{loc: *loc}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
