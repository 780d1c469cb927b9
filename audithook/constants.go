package audithook

// Action constants for audit events.
const (
	// Session actions
	ActionSessionRefreshed = "session.refreshed"
	ActionSessionSignedOut = "session.signed_out"

	// Profile actions
	ActionUsernameClaimed = "username.claimed"
	ActionPhotoUpdated    = "photo.updated"

	// Token actions
	ActionTokensDebited = "tokens.debited"
	ActionDebitDenied   = "tokens.denied"

	// Entitlement actions
	ActionEntitlementResolved = "entitlement.resolved"

	// Shortcut actions
	ActionShortcutAdded   = "shortcut.added"
	ActionShortcutDeleted = "shortcut.deleted"
)

// Resource constants for audit events.
const (
	ResourceSession     = "session"
	ResourceUsername    = "username"
	ResourceProfile     = "profile"
	ResourceTokens      = "tokens"
	ResourceEntitlement = "entitlement"
	ResourceShortcut    = "shortcut"
)

// Category constants for audit events.
const (
	CategoryIdentity = "identity"
	CategoryAccess   = "access"
	CategoryBilling  = "billing"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
