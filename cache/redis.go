package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kidtube/youtube"
)

// KeyPrefix namespaces every key written by RedisCache.
const KeyPrefix = "kidtube:videos"

// RedisCache stores listings as JSON strings with a Redis expiry.
type RedisCache struct {
	cl *redis.Client
}

// NewRedisCache connects to the server at rawURL (redis://...) and checks
// it with PING.
func NewRedisCache(ctx context.Context, rawURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}

	cl := redis.NewClient(opt)
	if _, err := cl.Ping(ctx).Result(); err != nil {
		cl.Close()
		return nil, fmt.Errorf("cache: ping redis: %w", err)
	}
	return &RedisCache{cl: cl}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(cl *redis.Client) *RedisCache {
	return &RedisCache{cl: cl}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, k string) ([]youtube.VideoMetadata, bool, error) {
	raw, err := c.cl.Get(ctx, key(KeyPrefix, k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: get %s: %w", k, err)
	}

	var videos []youtube.VideoMetadata
	if err := json.Unmarshal(raw, &videos); err != nil {
		return nil, false, fmt.Errorf("cache: decode %s: %w", k, err)
	}
	return videos, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, k string, videos []youtube.VideoMetadata, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	raw, err := json.Marshal(videos)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", k, err)
	}
	if err := c.cl.Set(ctx, key(KeyPrefix, k), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", k, err)
	}
	return nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.cl.Close()
}
