package hook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry manages registered hooks and provides efficient dispatch.
// Interface membership is cached at registration time.
type Registry struct {
	mu     sync.RWMutex
	hooks  []Hook
	logger *slog.Logger

	onInit                []OnInit
	onShutdown            []OnShutdown
	onSessionRefreshed    []OnSessionRefreshed
	onSignedOut           []OnSignedOut
	onUsernameClaimed     []OnUsernameClaimed
	onPhotoUpdated        []OnPhotoUpdated
	onTokensDebited       []OnTokensDebited
	onDebitDenied         []OnDebitDenied
	onEntitlementResolved []OnEntitlementResolved
	onShortcutAdded       []OnShortcutAdded
	onShortcutDeleted     []OnShortcutDeleted
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a hook to the registry and caches its interfaces.
func (r *Registry) Register(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.hooks {
		if existing.Name() == h.Name() {
			return fmt.Errorf("hook: duplicate registration: %s", h.Name())
		}
	}

	r.hooks = append(r.hooks, h)

	if v, ok := h.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := h.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := h.(OnSessionRefreshed); ok {
		r.onSessionRefreshed = append(r.onSessionRefreshed, v)
	}
	if v, ok := h.(OnSignedOut); ok {
		r.onSignedOut = append(r.onSignedOut, v)
	}
	if v, ok := h.(OnUsernameClaimed); ok {
		r.onUsernameClaimed = append(r.onUsernameClaimed, v)
	}
	if v, ok := h.(OnPhotoUpdated); ok {
		r.onPhotoUpdated = append(r.onPhotoUpdated, v)
	}
	if v, ok := h.(OnTokensDebited); ok {
		r.onTokensDebited = append(r.onTokensDebited, v)
	}
	if v, ok := h.(OnDebitDenied); ok {
		r.onDebitDenied = append(r.onDebitDenied, v)
	}
	if v, ok := h.(OnEntitlementResolved); ok {
		r.onEntitlementResolved = append(r.onEntitlementResolved, v)
	}
	if v, ok := h.(OnShortcutAdded); ok {
		r.onShortcutAdded = append(r.onShortcutAdded, v)
	}
	if v, ok := h.(OnShortcutDeleted); ok {
		r.onShortcutDeleted = append(r.onShortcutDeleted, v)
	}

	return nil
}

// Get returns a hook by name, or nil.
func (r *Registry) Get(name string) Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.hooks {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

// List returns the names of all registered hooks.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.hooks))
	for _, h := range r.hooks {
		names = append(names, h.Name())
	}
	return names
}

// Count returns the number of registered hooks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// EmitInit calls OnInit for all hooks that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	hooks := r.onInit
	r.mu.RUnlock()

	for _, h := range hooks {
		r.call(ctx, h.Name(), "OnInit", func() error {
			return h.OnInit(ctx, engine)
		})
	}
}

// EmitShutdown calls OnShutdown for all hooks that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onShutdown
	r.mu.RUnlock()

	for _, h := range hooks {
		r.call(ctx, h.Name(), "OnShutdown", func() error {
			return h.OnShutdown(ctx)
		})
	}
}

// EmitSessionRefreshed emits a session refreshed event.
func (r *Registry) EmitSessionRefreshed(ctx context.Context, snapshot interface{}) {
	r.mu.RLock()
	hooks := r.onSessionRefreshed
	r.mu.RUnlock()

	for _, h := range hooks {
		r.call(ctx, h.Name(), "OnSessionRefreshed", func() error {
			return h.OnSessionRefreshed(ctx, snapshot)
		})
	}
}

// EmitSignedOut emits a signed out event.
func (r *Registry) EmitSignedOut(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onSignedOut
	r.mu.RUnlock()

	for _, h := range hooks {
		r.call(ctx, h.Name(), "OnSignedOut", func() error {
			return h.OnSignedOut(ctx)
		})
	}
}

// EmitUsernameClaimed emits a username claimed event.
func (r *Registry) EmitUsernameClaimed(ctx context.Context, uid, handle, previous string) {
	r.mu.RLock()
	hooks := r.onUsernameClaimed
	r.mu.RUnlock()

	for _, h := range hooks {
		r.call(ctx, h.Name(), "OnUsernameClaimed", func() error {
			return h.OnUsernameClaimed(ctx, uid, handle, previous)
		})
	}
}

// EmitPhotoUpdated emits a photo updated event.
func (r *Registry) EmitPhotoUpdated(ctx context.Context, uid, url string) {
	r.mu.RLock()
	hooks := r.onPhotoUpdated
	r.mu.RUnlock()

	for _, h := range hooks {
		r.call(ctx, h.Name(), "OnPhotoUpdated", func() error {
			return h.OnPhotoUpdated(ctx, uid, url)
		})
	}
}

// EmitTokensDebited emits a tokens debited event.
func (r *Registry) EmitTokensDebited(ctx context.Context, uid string, amount, remaining int64) {
	r.mu.RLock()
	hooks := r.onTokensDebited
	r.mu.RUnlock()

	for _, h := range hooks {
		r.call(ctx, h.Name(), "OnTokensDebited", func() error {
			return h.OnTokensDebited(ctx, uid, amount, remaining)
		})
	}
}

// EmitDebitDenied emits a debit denied event.
func (r *Registry) EmitDebitDenied(ctx context.Context, uid string, requested, remaining int64) {
	r.mu.RLock()
	hooks := r.onDebitDenied
	r.mu.RUnlock()

	for _, h := range hooks {
		r.call(ctx, h.Name(), "OnDebitDenied", func() error {
			return h.OnDebitDenied(ctx, uid, requested, remaining)
		})
	}
}

// EmitEntitlementResolved emits an entitlement resolved event.
func (r *Registry) EmitEntitlementResolved(ctx context.Context, snapshot interface{}) {
	r.mu.RLock()
	hooks := r.onEntitlementResolved
	r.mu.RUnlock()

	for _, h := range hooks {
		r.call(ctx, h.Name(), "OnEntitlementResolved", func() error {
			return h.OnEntitlementResolved(ctx, snapshot)
		})
	}
}

// EmitShortcutAdded emits a shortcut added event.
func (r *Registry) EmitShortcutAdded(ctx context.Context, shortcut interface{}) {
	r.mu.RLock()
	hooks := r.onShortcutAdded
	r.mu.RUnlock()

	for _, h := range hooks {
		r.call(ctx, h.Name(), "OnShortcutAdded", func() error {
			return h.OnShortcutAdded(ctx, shortcut)
		})
	}
}

// EmitShortcutDeleted emits a shortcut deleted event.
func (r *Registry) EmitShortcutDeleted(ctx context.Context, uid, shortcutID string) {
	r.mu.RLock()
	hooks := r.onShortcutDeleted
	r.mu.RUnlock()

	for _, h := range hooks {
		r.call(ctx, h.Name(), "OnShortcutDeleted", func() error {
			return h.OnShortcutDeleted(ctx, uid, shortcutID)
		})
	}
}

// call dispatches one hook with a timeout and logs failures. Hooks must
// never block or break the session pipeline.
func (r *Registry) call(ctx context.Context, hookName, event string, fn func() error) {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(5 * time.Second):
		err = fmt.Errorf("hook timeout: %s", hookName)
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		r.logger.Warn("hook dispatch failed",
			"hook", hookName,
			"event", event,
			"error", err,
		)
	}
}
