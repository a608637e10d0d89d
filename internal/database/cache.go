package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// JSONCache stores JSON encoded values in Redis under a key prefix
type JSONCache struct {
	client *RedisClient
	prefix string
	ttl    time.Duration
}

// NewJSONCache creates a cache whose entries expire after ttl
func NewJSONCache(client *RedisClient, prefix string, ttl time.Duration) *JSONCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &JSONCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *JSONCache) key(name string) string {
	return c.prefix + ":" + name
}

// Get decodes the cached value into dst. It reports false on a miss.
func (c *JSONCache) Get(ctx context.Context, name string, dst interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, c.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", name, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		// Drop entries written by an incompatible version
		c.client.Del(ctx, c.key(name))
		return false, fmt.Errorf("cache decode %s: %w", name, err)
	}
	return true, nil
}

// Set encodes v and stores it with the cache ttl
func (c *JSONCache) Set(ctx context.Context, name string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", name, err)
	}
	if err := c.client.Set(ctx, c.key(name), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", name, err)
	}
	return nil
}

// Delete removes the named entries
func (c *JSONCache) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = c.key(n)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Version returns the counter stored under name, 0 when it was never bumped
func (c *JSONCache) Version(ctx context.Context, name string) (int64, error) {
	v, err := c.client.Get(ctx, c.key(name)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache version %s: %w", name, err)
	}
	return v, nil
}

// Bump increments the counter stored under name. Counters never expire.
func (c *JSONCache) Bump(ctx context.Context, name string) (int64, error) {
	v, err := c.client.Incr(ctx, c.key(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("cache bump %s: %w", name, err)
	}
	return v, nil
}
