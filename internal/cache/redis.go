// Package cache provides the Redis layer: distributed rate limits and
// short-lived caches of read-mostly rows.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key so the scheduler can share a Redis
// database with other services.
const DefaultKeyPrefix = "sched:"

// Cache wraps a Redis client with scheduler-specific operations.
type Cache struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// Option customizes a Cache.
type Option func(*options)

type options struct {
	prefix       string
	poolSize     int
	minIdleConns int
}

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithPoolSize sets the connection pool size.
func WithPoolSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.poolSize = size
		}
	}
}

// New connects to redisURL and verifies the connection.
func New(ctx context.Context, redisURL string, opts ...Option) (*Cache, error) {
	o := options{prefix: DefaultKeyPrefix, poolSize: 10, minIdleConns: 2}
	for _, opt := range opts {
		opt(&o)
	}

	redisOpt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpt.PoolSize = o.poolSize
	redisOpt.MinIdleConns = o.minIdleConns
	redisOpt.PoolTimeout = 4 * time.Second
	redisOpt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(redisOpt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client, prefix: o.prefix, now: time.Now}, nil
}

// NewFromClient wraps an existing client. Used by tests.
func NewFromClient(client *redis.Client, opts ...Option) *Cache {
	o := options{prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache{client: client, prefix: o.prefix, now: time.Now}
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client.
func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) key(parts ...string) string {
	k := c.prefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}
