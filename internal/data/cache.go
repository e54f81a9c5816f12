package data

import (
	"context"
	"fmt"
	"sync"
	"time"

	"forecast-backtest/internal/model"
)

// CacheEntry is one generated series held by SeriesCache.
type CacheEntry struct {
	Series    *model.TimeSeries
	ExpiresAt time.Time
}

// SeriesCache keeps recently generated series in memory.
//
// Generation is deterministic in (periods, seed), so a cached entry is
// indistinguishable from a fresh one. Cached series are shared between
// callers and must be treated as read-only.
type SeriesCache struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewSeriesCache(ttl time.Duration) *SeriesCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SeriesCache{
		store: make(map[string]*CacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns a cached series if present and not expired.
func (c *SeriesCache) Get(key string) (*model.TimeSeries, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.store[key]
	if !ok || c.now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Series, true
}

func (c *SeriesCache) Set(key string, s *model.TimeSeries) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = &CacheEntry{
		Series:    s,
		ExpiresAt: c.now().Add(c.ttl),
	}
}

// Generate returns the cached series for (periods, seed), generating and
// storing it on a miss. A nil cache always generates.
func (c *SeriesCache) Generate(periods int, seed int64) (*model.TimeSeries, error) {
	key := GenerateCacheKey(periods, seed)
	if s, ok := c.Get(key); ok {
		return s, nil
	}
	s, err := Generate(periods, seed)
	if err != nil {
		return nil, err
	}
	c.Set(key, s)
	return s, nil
}

func (c *SeriesCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *SeriesCache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*CacheEntry)
}

// Run evicts expired entries every interval until ctx is done.
func (c *SeriesCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *SeriesCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.store {
		if now.After(entry.ExpiresAt) {
			delete(c.store, key)
		}
	}
}

// GenerateCacheKey builds the cache key for a generated series.
func GenerateCacheKey(periods int, seed int64) string {
	return fmt.Sprintf("synthetic:%d:%d", periods, seed)
}
