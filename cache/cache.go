// Package cache stores channel video listings between requests.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"kidtube/youtube"
)

// Defaults for listing caches.
const (
	// DefaultTTL is how long a channel listing stays fresh.
	DefaultTTL = 30 * time.Minute
	// DefaultSize is how many listings MemoryCache holds.
	DefaultSize = 256
)

// Cache is a TTL store for channel video listings keyed by channel ID.
type Cache interface {
	// Get returns the cached listing and whether it was present.
	Get(ctx context.Context, key string) ([]youtube.VideoMetadata, bool, error)
	// Set stores a listing. A non-positive ttl uses DefaultTTL.
	Set(ctx context.Context, key string, videos []youtube.VideoMetadata, ttl time.Duration) error
}

// key joins parts with ":".
func key(parts ...string) string {
	return strings.Join(parts, ":")
}

type memoryEntry struct {
	videos    []youtube.VideoMetadata
	expiresAt time.Time
}

// MemoryCache is an in-process Cache bounded to a fixed number of
// listings; the least recently used one is evicted first. Every entry
// lives at most maxTTL, and a shorter per-call ttl expires it earlier.
type MemoryCache struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemoryCache creates an empty MemoryCache. Non-positive arguments
// select DefaultSize and DefaultTTL.
func NewMemoryCache(size int, maxTTL time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultSize
	}
	if maxTTL <= 0 {
		maxTTL = DefaultTTL
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		now: time.Now,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, k string) ([]youtube.VideoMetadata, bool, error) {
	e, ok := c.lru.Get(k)
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.lru.Remove(k)
		return nil, false, nil
	}
	return append([]youtube.VideoMetadata(nil), e.videos...), true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, k string, videos []youtube.VideoMetadata, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.lru.Add(k, memoryEntry{
		videos:    append([]youtube.VideoMetadata(nil), videos...),
		expiresAt: c.now().Add(ttl),
	})
	return nil
}

// Len reports how many listings are held, expired ones included until
// they are evicted.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
