package toolexec

import (
	"context"
	"sync"
	"time"
)

type (
	// Cache stores successful tool outputs keyed by CacheKey. Implementations
	// must be safe for concurrent use. Get errors are treated as misses by
	// the executor so a degraded cache never fails a call.
	Cache interface {
		// Get returns the cached output for key and whether it was present
		// and unexpired.
		Get(ctx context.Context, key string) (map[string]any, bool, error)
		// Set stores value under key for ttl. A non-positive ttl stores
		// nothing.
		Set(ctx context.Context, key string, value map[string]any, ttl time.Duration) error
	}

	// CachePolicy controls result caching for a single call. The zero value
	// disables caching.
	CachePolicy struct {
		// Enabled turns the cache lookup and write-back on.
		Enabled bool
		// TTL bounds how long a cached result stays valid.
		TTL time.Duration
	}

	// MemoryCache is an in-process Cache with per-entry expiry. Entries are
	// reaped lazily on read.
	MemoryCache struct {
		mu      sync.RWMutex
		entries map[string]memoryEntry
		clk     clock
	}

	memoryEntry struct {
		value     map[string]any
		expiresAt time.Time
	}
)

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), clk: realClock{}}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (map[string]any, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.clk.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have refreshed
		// the entry.
		if cur, ok := c.entries[key]; ok && c.clk.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value map[string]any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{value: value, expiresAt: c.clk.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
