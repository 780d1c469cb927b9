// Package hook provides an extensible hook system for the account session
// engine. Hooks observe lifecycle events (session refreshes, username
// claims, token debits) to extend functionality without coupling the
// engine to audit or metrics backends.
package hook

import "context"

// Hook is the base interface that all hooks must implement.
type Hook interface {
	Name() string
}

// OnInit is called when the engine starts.
type OnInit interface {
	Hook
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine is shutting down.
type OnShutdown interface {
	Hook
	OnShutdown(ctx context.Context) error
}

// OnSessionRefreshed is called after a bootstrap or explicit refresh
// publishes a new snapshot.
type OnSessionRefreshed interface {
	Hook
	OnSessionRefreshed(ctx context.Context, snapshot interface{}) error
}

// OnSignedOut is called when the identity resolves to nil.
type OnSignedOut interface {
	Hook
	OnSignedOut(ctx context.Context) error
}

// OnUsernameClaimed is called after a username claim commits.
type OnUsernameClaimed interface {
	Hook
	OnUsernameClaimed(ctx context.Context, uid, handle, previous string) error
}

// OnPhotoUpdated is called after a profile photo update commits.
type OnPhotoUpdated interface {
	Hook
	OnPhotoUpdated(ctx context.Context, uid, url string) error
}

// OnTokensDebited is called after a successful token debit.
type OnTokensDebited interface {
	Hook
	OnTokensDebited(ctx context.Context, uid string, amount, remaining int64) error
}

// OnDebitDenied is called when a debit fails for insufficient balance.
type OnDebitDenied interface {
	Hook
	OnDebitDenied(ctx context.Context, uid string, requested, remaining int64) error
}

// OnEntitlementResolved is called when an entitlement snapshot is resolved
// from the store (cache hits do not emit).
type OnEntitlementResolved interface {
	Hook
	OnEntitlementResolved(ctx context.Context, snapshot interface{}) error
}

// OnShortcutAdded is called after a shortcut is created.
type OnShortcutAdded interface {
	Hook
	OnShortcutAdded(ctx context.Context, shortcut interface{}) error
}

// OnShortcutDeleted is called after a shortcut is deleted.
type OnShortcutDeleted interface {
	Hook
	OnShortcutDeleted(ctx context.Context, uid, shortcutID string) error
}
