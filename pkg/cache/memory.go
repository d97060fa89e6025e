package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lborres/agora/core"
)

var _ core.CacheWithStats = (*RevocationCache)(nil)

// RevocationCache keeps, per user, the instant before which issued sessions
// are no longer honoured. Entries outlive every token they could affect
// when TTL is at least the session lifetime.
type RevocationCache struct {
	cache   map[string]*cachedCutoff
	mu      sync.RWMutex
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	// counters
	hits      int64
	misses    int64
	sets      int64
	deletes   int64
	evictions int64
}

type cachedCutoff struct {
	cutoff   time.Time
	cachedAt time.Time
}

// NewRevocationCache creates a new in-memory revocation cache
func NewRevocationCache(c core.CacheConfig) *RevocationCache {
	if c.TTL == 0 {
		c.TTL = core.DefaultSessionConfig().MaxAge
	}
	if c.MaxSize == 0 {
		c.MaxSize = 10000
	}

	return &RevocationCache{
		cache:   make(map[string]*cachedCutoff),
		ttl:     c.TTL,
		maxSize: c.MaxSize,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (c *RevocationCache) WithClock(now func() time.Time) *RevocationCache {
	c.now = now
	return c
}

// Get returns the revocation cutoff recorded for userID.
func (c *RevocationCache) Get(userID string) (time.Time, error) {
	c.mu.RLock()
	var record cachedCutoff
	entry, exists := c.cache[userID]
	if exists {
		record = *entry
	}
	c.mu.RUnlock()

	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return time.Time{}, core.ErrCacheNotFound
	}

	if c.now().Sub(record.cachedAt) > c.ttl {
		atomic.AddInt64(&c.misses, 1)
		if err := c.Delete(userID); err != nil {
			return time.Time{}, err
		}
		return time.Time{}, core.ErrCacheNotFound
	}

	atomic.AddInt64(&c.hits, 1)
	return record.cutoff, nil
}

// Set records cutoff for userID. A later cutoff replaces an earlier one;
// an earlier one is ignored.
func (c *RevocationCache) Set(userID string, cutoff time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.cache[userID]; ok && existing.cutoff.After(cutoff) {
		existing.cachedAt = c.now()
		atomic.AddInt64(&c.sets, 1)
		return nil
	}

	if _, ok := c.cache[userID]; !ok && len(c.cache) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.cache[userID] = &cachedCutoff{
		cutoff:   cutoff,
		cachedAt: c.now(),
	}

	atomic.AddInt64(&c.sets, 1)
	return nil
}

func (c *RevocationCache) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, r := range c.cache {
		if oldestKey == "" || r.cachedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, r.cachedAt
		}
	}
	if oldestKey != "" {
		delete(c.cache, oldestKey)
		atomic.AddInt64(&c.evictions, 1)
	}
}

// Delete removes the cutoff for userID
func (c *RevocationCache) Delete(userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, existed := c.cache[userID]; existed {
		delete(c.cache, userID)
		atomic.AddInt64(&c.deletes, 1)
	}
	return nil
}

// Clear removes all entries
func (c *RevocationCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*cachedCutoff)
	return nil
}

// Len returns the number of users with a recorded cutoff
func (c *RevocationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Stats returns cache statistics
func (c *RevocationCache) Stats() core.CacheStats {
	return core.CacheStats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Sets:      atomic.LoadInt64(&c.sets),
		Deletes:   atomic.LoadInt64(&c.deletes),
		Evictions: atomic.LoadInt64(&c.evictions),
		Size:      c.Len(),
		TTL:       c.ttl,
	}
}
