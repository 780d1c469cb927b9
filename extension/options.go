package extension

import (
	"time"

	"github.com/xraph/grove"

	accounts "github.com/blacklink/accounts"
	"github.com/blacklink/accounts/cache"
	"github.com/blacklink/accounts/docstore"
	mongostore "github.com/blacklink/accounts/docstore/mongo"
	"github.com/blacklink/accounts/hook"
)

// Option configures the accounts Forge extension.
type Option func(*Extension)

// WithStore sets the docstore for the session engine.
func WithStore(s docstore.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB backs the session engine with the MongoDB docstore built on
// the given grove database.
func WithGroveDB(db *grove.DB) Option {
	return func(e *Extension) {
		e.store = mongostore.New(db)
	}
}

// WithSessionOption passes an accounts.Option through to the engine.
func WithSessionOption(opt accounts.Option) Option {
	return func(e *Extension) {
		e.sessionOpts = append(e.sessionOpts, opt)
	}
}

// WithHook registers a session hook.
func WithHook(h hook.Hook) Option {
	return func(e *Extension) {
		e.sessionOpts = append(e.sessionOpts, accounts.WithHook(h))
	}
}

// WithCache sets the entitlement cache backend.
func WithCache(c cache.Cache) Option {
	return func(e *Extension) {
		e.sessionOpts = append(e.sessionOpts, accounts.WithCache(c))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithEntitlementCacheTTL sets the entitlement cache duration.
func WithEntitlementCacheTTL(d time.Duration) Option {
	return func(e *Extension) { e.config.EntitlementCacheTTL = d }
}

// WithCohortPolicy sets the username cohort marker and suffix.
func WithCohortPolicy(marker, suffix string) Option {
	return func(e *Extension) {
		e.config.CohortMarker = marker
		e.config.CohortSuffix = suffix
	}
}

// WithOrgLimit bounds the organization membership query.
func WithOrgLimit(n int) Option {
	return func(e *Extension) { e.config.OrgLimit = n }
}
