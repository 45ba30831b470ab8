package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisCache implements CacheStore on Redis. Values are stored as JSON
// and expiry is handled by Redis itself via per-key TTLs.
type RedisCache struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// Compile-time check that RedisCache implements CacheStore.
var _ CacheStore = (*RedisCache)(nil)

// NewRedisCache creates a cache store on an existing Redis client.
func NewRedisCache(rdb *redis.Client, logger zerolog.Logger) *RedisCache {
	return &RedisCache{rdb: rdb, logger: logger}
}

// Get fetches a cached location. A missing or expired key is a miss,
// not an error.
func (c *RedisCache) Get(ctx context.Context, key string) (*Location, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	var loc Location
	if err := json.Unmarshal(data, &loc); err != nil {
		// A corrupt entry behaves like a miss so the caller refetches.
		c.logger.Warn().Err(err).Str("key", key).Msg("dropping corrupt cache entry")
		return nil, nil
	}
	return &loc, nil
}

// Set upserts a location with the given TTL. A zero TTL stores the
// entry without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, loc *Location, ttl time.Duration) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}
