// Package observability provides a metrics hook that records session
// lifecycle event counts via a pluggable MetricFactory.
package observability

import (
	"context"

	"github.com/blacklink/accounts/hook"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ hook.Hook                  = (*MetricsExtension)(nil)
	_ hook.OnInit                = (*MetricsExtension)(nil)
	_ hook.OnSessionRefreshed    = (*MetricsExtension)(nil)
	_ hook.OnSignedOut           = (*MetricsExtension)(nil)
	_ hook.OnUsernameClaimed     = (*MetricsExtension)(nil)
	_ hook.OnPhotoUpdated        = (*MetricsExtension)(nil)
	_ hook.OnTokensDebited       = (*MetricsExtension)(nil)
	_ hook.OnDebitDenied         = (*MetricsExtension)(nil)
	_ hook.OnEntitlementResolved = (*MetricsExtension)(nil)
	_ hook.OnShortcutAdded       = (*MetricsExtension)(nil)
	_ hook.OnShortcutDeleted     = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a session hook to automatically track account metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Session metrics
	SessionRefreshed Counter
	SessionSignedOut Counter

	// Username metrics
	UsernameClaimed Counter
	PhotoUpdated    Counter

	// Token metrics
	TokensDebited   Counter
	TokensSpent     Histogram
	DebitDenied     Counter
	TokensRemaining Histogram

	// Entitlement metrics
	EntitlementResolved Counter

	// Shortcut metrics
	ShortcutAdded   Counter
	ShortcutDeleted Counter

	// Error metrics
	StoreErrors Counter
	HookErrors  Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Session metrics
		SessionRefreshed: factory.Counter("accounts.session.refreshed"),
		SessionSignedOut: factory.Counter("accounts.session.signed_out"),

		// Username metrics
		UsernameClaimed: factory.Counter("accounts.username.claimed"),
		PhotoUpdated:    factory.Counter("accounts.photo.updated"),

		// Token metrics
		TokensDebited:   factory.Counter("accounts.tokens.debited"),
		TokensSpent:     factory.Histogram("accounts.tokens.spent"),
		DebitDenied:     factory.Counter("accounts.tokens.denied"),
		TokensRemaining: factory.Histogram("accounts.tokens.remaining"),

		// Entitlement metrics
		EntitlementResolved: factory.Counter("accounts.entitlement.resolved"),

		// Shortcut metrics
		ShortcutAdded:   factory.Counter("accounts.shortcut.added"),
		ShortcutDeleted: factory.Counter("accounts.shortcut.deleted"),

		// Error metrics
		StoreErrors: factory.Counter("accounts.store.errors"),
		HookErrors:  factory.Counter("accounts.hook.errors"),
	}
}

// Name implements hook.Hook.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements hook.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// OnSessionRefreshed implements hook.OnSessionRefreshed.
func (m *MetricsExtension) OnSessionRefreshed(_ context.Context, _ interface{}) error {
	m.SessionRefreshed.Inc()
	return nil
}

// OnSignedOut implements hook.OnSignedOut.
func (m *MetricsExtension) OnSignedOut(_ context.Context) error {
	m.SessionSignedOut.Inc()
	return nil
}

// OnUsernameClaimed implements hook.OnUsernameClaimed.
func (m *MetricsExtension) OnUsernameClaimed(_ context.Context, _, _, _ string) error {
	m.UsernameClaimed.Inc()
	return nil
}

// OnPhotoUpdated implements hook.OnPhotoUpdated.
func (m *MetricsExtension) OnPhotoUpdated(_ context.Context, _, _ string) error {
	m.PhotoUpdated.Inc()
	return nil
}

// OnTokensDebited implements hook.OnTokensDebited.
func (m *MetricsExtension) OnTokensDebited(_ context.Context, _ string, amount, remaining int64) error {
	m.TokensDebited.Inc()
	m.TokensSpent.Observe(float64(amount))
	m.TokensRemaining.Observe(float64(remaining))
	return nil
}

// OnDebitDenied implements hook.OnDebitDenied.
func (m *MetricsExtension) OnDebitDenied(_ context.Context, _ string, _, _ int64) error {
	m.DebitDenied.Inc()
	return nil
}

// OnEntitlementResolved implements hook.OnEntitlementResolved.
func (m *MetricsExtension) OnEntitlementResolved(_ context.Context, _ interface{}) error {
	m.EntitlementResolved.Inc()
	return nil
}

// OnShortcutAdded implements hook.OnShortcutAdded.
func (m *MetricsExtension) OnShortcutAdded(_ context.Context, _ interface{}) error {
	m.ShortcutAdded.Inc()
	return nil
}

// OnShortcutDeleted implements hook.OnShortcutDeleted.
func (m *MetricsExtension) OnShortcutDeleted(_ context.Context, _, _ string) error {
	m.ShortcutDeleted.Inc()
	return nil
}
