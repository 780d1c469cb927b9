// Package audithook bridges session lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any specific audit system. Callers inject a RecorderFunc adapter that
// bridges to their trail at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blacklink/accounts/hook"
)

// Compile-time interface checks.
var (
	_ hook.Hook                  = (*Extension)(nil)
	_ hook.OnSessionRefreshed    = (*Extension)(nil)
	_ hook.OnSignedOut           = (*Extension)(nil)
	_ hook.OnUsernameClaimed     = (*Extension)(nil)
	_ hook.OnPhotoUpdated        = (*Extension)(nil)
	_ hook.OnTokensDebited       = (*Extension)(nil)
	_ hook.OnDebitDenied         = (*Extension)(nil)
	_ hook.OnEntitlementResolved = (*Extension)(nil)
	_ hook.OnShortcutAdded       = (*Extension)(nil)
	_ hook.OnShortcutDeleted     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges session lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements hook.Hook.
func (e *Extension) Name() string { return "audit-hook" }

// OnSessionRefreshed implements hook.OnSessionRefreshed.
func (e *Extension) OnSessionRefreshed(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionSessionRefreshed, SeverityInfo, OutcomeSuccess,
		ResourceSession, "", CategoryIdentity, nil,
		"event", "session_refreshed",
	)
}

// OnSignedOut implements hook.OnSignedOut.
func (e *Extension) OnSignedOut(ctx context.Context) error {
	return e.record(ctx, ActionSessionSignedOut, SeverityInfo, OutcomeSuccess,
		ResourceSession, "", CategoryIdentity, nil,
		"event", "session_signed_out",
	)
}

// OnUsernameClaimed implements hook.OnUsernameClaimed.
func (e *Extension) OnUsernameClaimed(ctx context.Context, uid, handle, previous string) error {
	return e.record(ctx, ActionUsernameClaimed, SeverityInfo, OutcomeSuccess,
		ResourceUsername, handle, CategoryIdentity, nil,
		"uid", uid,
		"handle", handle,
		"previous", previous,
	)
}

// OnPhotoUpdated implements hook.OnPhotoUpdated.
func (e *Extension) OnPhotoUpdated(ctx context.Context, uid, url string) error {
	return e.record(ctx, ActionPhotoUpdated, SeverityInfo, OutcomeSuccess,
		ResourceProfile, uid, CategoryIdentity, nil,
		"uid", uid,
		"url", url,
	)
}

// OnTokensDebited implements hook.OnTokensDebited.
func (e *Extension) OnTokensDebited(ctx context.Context, uid string, amount, remaining int64) error {
	return e.record(ctx, ActionTokensDebited, SeverityInfo, OutcomeSuccess,
		ResourceTokens, uid, CategoryBilling, nil,
		"uid", uid,
		"amount", amount,
		"remaining", remaining,
	)
}

// OnDebitDenied implements hook.OnDebitDenied.
func (e *Extension) OnDebitDenied(ctx context.Context, uid string, requested, remaining int64) error {
	return e.record(ctx, ActionDebitDenied, SeverityWarning, OutcomeFailure,
		ResourceTokens, uid, CategoryBilling, nil,
		"uid", uid,
		"requested", requested,
		"remaining", remaining,
	)
}

// OnEntitlementResolved implements hook.OnEntitlementResolved.
func (e *Extension) OnEntitlementResolved(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionEntitlementResolved, SeverityInfo, OutcomeSuccess,
		ResourceEntitlement, "", CategoryAccess, nil,
		"event", "entitlement_resolved",
	)
}

// OnShortcutAdded implements hook.OnShortcutAdded.
func (e *Extension) OnShortcutAdded(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionShortcutAdded, SeverityInfo, OutcomeSuccess,
		ResourceShortcut, "", CategoryIdentity, nil,
		"event", "shortcut_added",
	)
}

// OnShortcutDeleted implements hook.OnShortcutDeleted.
func (e *Extension) OnShortcutDeleted(ctx context.Context, uid, shortcutID string) error {
	return e.record(ctx, ActionShortcutDeleted, SeverityInfo, OutcomeSuccess,
		ResourceShortcut, shortcutID, CategoryIdentity, nil,
		"uid", uid,
		"shortcut_id", shortcutID,
	)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audithook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
