package geocode

import (
	"context"
	"time"
)

// CacheStore is the TTL key-value store in front of the live provider.
// Get returns (nil, nil) for missing or expired entries; expiry
// enforcement belongs to the backing store, never to callers.
type CacheStore interface {
	Get(ctx context.Context, key string) (*Location, error)
	Set(ctx context.Context, key string, loc *Location, ttl time.Duration) error
}
