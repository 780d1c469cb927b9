// Package memory provides the default in-process entitlement cache.
package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/blacklink/accounts/cache"
	"github.com/blacklink/accounts/entitlement"
)

var _ cache.Cache = (*Cache)(nil)

// Cache wraps a go-cache instance.
type Cache struct {
	inner *gocache.Cache
}

// New creates a cache that sweeps expired entries every cleanupInterval.
func New(cleanupInterval time.Duration) *Cache {
	return &Cache{inner: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (c *Cache) Get(_ context.Context, key string) (entitlement.Snapshot, bool) {
	v, found := c.inner.Get(key)
	if !found {
		return entitlement.Snapshot{}, false
	}
	snap, ok := v.(entitlement.Snapshot)
	return snap, ok
}

func (c *Cache) Set(_ context.Context, key string, snap entitlement.Snapshot, ttl time.Duration) {
	c.inner.Set(key, snap, ttl)
}

func (c *Cache) Invalidate(_ context.Context, key string) {
	c.inner.Delete(key)
}
