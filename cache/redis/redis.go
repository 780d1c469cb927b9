// Package redis provides a Redis-backed entitlement cache for deployments
// that share the cache across processes. Values are stored as JSON.
package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blacklink/accounts/cache"
	"github.com/blacklink/accounts/entitlement"
)

var _ cache.Cache = (*Cache)(nil)

// Cache wraps a redis client. Redis failures degrade to cache misses.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// New creates a Redis-backed cache.
func New(client *redis.Client) *Cache {
	return &Cache{client: client, logger: slog.Default()}
}

// NewClient dials a Redis server with the usual connection parameters.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// WithLogger sets the logger used for degraded cache operations.
func (c *Cache) WithLogger(logger *slog.Logger) *Cache {
	c.logger = logger
	return c
}

func (c *Cache) Get(ctx context.Context, key string) (entitlement.Snapshot, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("entitlement cache read failed", "key", key, "error", err)
		}
		return entitlement.Snapshot{}, false
	}

	var snap entitlement.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.logger.Warn("entitlement cache entry corrupt", "key", key, "error", err)
		return entitlement.Snapshot{}, false
	}
	return snap, true
}

func (c *Cache) Set(ctx context.Context, key string, snap entitlement.Snapshot, ttl time.Duration) {
	data, err := json.Marshal(snap)
	if err != nil {
		c.logger.Warn("entitlement cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("entitlement cache write failed", "key", key, "error", err)
	}
}

func (c *Cache) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("entitlement cache invalidate failed", "key", key, "error", err)
	}
}
