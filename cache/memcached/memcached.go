// Package memcached provides a memcached-backed entitlement cache.
// Values are stored as JSON; failures degrade to cache misses.
package memcached

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/blacklink/accounts/cache"
	"github.com/blacklink/accounts/entitlement"
)

var _ cache.Cache = (*Cache)(nil)

// Cache wraps a memcache client.
type Cache struct {
	client *memcache.Client
	logger *slog.Logger
}

// New creates a memcached-backed cache.
func New(client *memcache.Client) *Cache {
	return &Cache{client: client, logger: slog.Default()}
}

// NewClient connects to the given memcached servers.
func NewClient(servers ...string) *memcache.Client {
	return memcache.New(servers...)
}

// WithLogger sets the logger used for degraded cache operations.
func (c *Cache) WithLogger(logger *slog.Logger) *Cache {
	c.logger = logger
	return c
}

func (c *Cache) Get(_ context.Context, key string) (entitlement.Snapshot, bool) {
	item, err := c.client.Get(key)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			c.logger.Warn("entitlement cache read failed", "key", key, "error", err)
		}
		return entitlement.Snapshot{}, false
	}

	var snap entitlement.Snapshot
	if err := json.Unmarshal(item.Value, &snap); err != nil {
		c.logger.Warn("entitlement cache entry corrupt", "key", key, "error", err)
		return entitlement.Snapshot{}, false
	}
	return snap, true
}

func (c *Cache) Set(_ context.Context, key string, snap entitlement.Snapshot, ttl time.Duration) {
	data, err := json.Marshal(snap)
	if err != nil {
		c.logger.Warn("entitlement cache encode failed", "key", key, "error", err)
		return
	}
	item := &memcache.Item{
		Key:        key,
		Value:      data,
		Expiration: int32(ttl / time.Second),
	}
	if err := c.client.Set(item); err != nil {
		c.logger.Warn("entitlement cache write failed", "key", key, "error", err)
	}
}

func (c *Cache) Invalidate(_ context.Context, key string) {
	if err := c.client.Delete(key); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		c.logger.Warn("entitlement cache invalidate failed", "key", key, "error", err)
	}
}
