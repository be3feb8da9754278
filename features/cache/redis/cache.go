// Package redis provides a Redis-backed tool-result cache. Entries are the
// executor's successful tool outputs, serialized as JSON and expired
// server-side, so every process sharing the Redis instance shares one cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "toolcache:"
	clientName    = "tool-cache-redis"
)

type (
	// Options configures the cache.
	Options struct {
		// Client is the Redis connection backing the cache. Required; the
		// caller owns its lifecycle.
		Client *goredis.Client
		// Prefix namespaces cache keys so the instance can be shared with
		// other features. Defaults to "toolcache:".
		Prefix string
	}

	// Cache implements the tool executor's result cache over Redis. Safe
	// for concurrent use.
	Cache struct {
		client *goredis.Client
		prefix string
	}
)

// New returns a Cache over the provided Redis connection.
func New(opts Options) (*Cache, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Cache{client: opts.Client, prefix: prefix}, nil
}

// Get returns the cached output for key. A missing or expired entry is a
// plain miss; transport and decode failures surface as errors, which the
// executor downgrades to misses so a degraded cache never fails a call.
func (c *Cache) Get(ctx context.Context, key string) (map[string]any, bool, error) {
	payload, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var value map[string]any
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, false, fmt.Errorf("decode cached value: %w", err)
	}
	return value, true, nil
}

// Set stores value under key with a server-side TTL. A non-positive ttl
// stores nothing.
func (c *Cache) Set(ctx context.Context, key string, value map[string]any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached value: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Name implements clue/health.Pinger.
func (c *Cache) Name() string { return clientName }

// Ping implements clue/health.Pinger.
func (c *Cache) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.client.Ping(ctx).Err()
}
