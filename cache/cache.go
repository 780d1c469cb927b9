// Package cache defines the injectable TTL cache used for entitlement
// snapshots. The engine owns key construction and the TTL; backends own
// storage and expiry. A cache failure is always treated as a miss.
package cache

import (
	"context"
	"time"

	"github.com/blacklink/accounts/entitlement"
)

// Cache stores entitlement snapshots with a per-entry TTL.
type Cache interface {
	// Get returns the cached snapshot for key, if present and unexpired.
	Get(ctx context.Context, key string) (entitlement.Snapshot, bool)

	// Set stores the snapshot under key for the given TTL.
	Set(ctx context.Context, key string, snap entitlement.Snapshot, ttl time.Duration)

	// Invalidate drops the entry for key, if any.
	Invalidate(ctx context.Context, key string)
}
