package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ListingCache implements ports.ListingCache using Redis. It sits on the
// read path only; writes never invalidate, entries just expire.
type ListingCache struct {
	client *goredis.Client
	prefix string
}

// NewListingCache creates a new Redis-backed listing cache.
func NewListingCache(client *goredis.Client) *ListingCache {
	return &ListingCache{
		client: client,
		prefix: "listing:",
	}
}

// Get retrieves a cached listing by key.
// Returns nil, nil if the key does not exist.
func (c *ListingCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis listing get: %w", err)
	}
	return val, nil
}

// Set stores a serialized listing with TTL.
func (c *ListingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+key, value, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis listing set: %w", err)
	}
	return nil
}
