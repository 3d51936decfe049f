package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TagCache stores previously suggested tag lists keyed by product content.
type TagCache interface {
	Get(ctx context.Context, key string) ([]string, error)
	Set(ctx context.Context, key string, tags []string, ttl time.Duration) error
}

// RedisTagCache implements TagCache backed by Redis.
type RedisTagCache struct {
	client redis.UniversalClient
}

var _ TagCache = (*RedisTagCache)(nil)

// NewRedisTagCache constructs a Redis-backed tag cache.
func NewRedisTagCache(client redis.UniversalClient) *RedisTagCache {
	return &RedisTagCache{client: client}
}

// Get loads a cached tag list. A miss returns (nil, nil).
func (c *RedisTagCache) Get(ctx context.Context, key string) ([]string, error) {
	bytes, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load tags: %w", err)
	}
	var tags []string
	if err := json.Unmarshal(bytes, &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return tags, nil
}

// Set stores the tag list with TTL.
func (c *RedisTagCache) Set(ctx context.Context, key string, tags []string, ttl time.Duration) error {
	payload, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist tags: %w", err)
	}
	return nil
}

// NoopTagCache satisfies TagCache when caching is disabled.
type NoopTagCache struct{}

var _ TagCache = NoopTagCache{}

func (NoopTagCache) Get(context.Context, string) ([]string, error) { return nil, nil }

func (NoopTagCache) Set(context.Context, string, []string, time.Duration) error { return nil }
