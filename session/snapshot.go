// Package session defines the in-memory aggregate exposed to the
// presentation layer: one snapshot per resolved identity, with per-field
// degradation tags so a failed read degrades that field only.
package session

import (
	"github.com/blacklink/accounts/docstore"
	"github.com/blacklink/accounts/entitlement"
	"github.com/blacklink/accounts/identity"
	"github.com/blacklink/accounts/profile"
	"github.com/blacklink/accounts/shortcut"
)

// Cause is the coarse reason a resource read degraded.
type Cause string

const (
	CauseNone             Cause = ""
	CausePermissionDenied Cause = "permission-denied"
	CauseNotFound         Cause = "not-found"
	CauseTransport        Cause = "transport"
)

// CauseOf classifies a store error into a degradation cause.
func CauseOf(err error) Cause {
	switch {
	case err == nil:
		return CauseNone
	case docstore.IsPermissionDenied(err):
		return CausePermissionDenied
	case docstore.IsNotFound(err):
		return CauseNotFound
	default:
		return CauseTransport
	}
}

// Field carries either a real value or a default standing in for one,
// tagged with the cause of the degradation. The distinction stays visible
// so the UI can suppress panels instead of rendering defaults as real data.
type Field[T any] struct {
	value T
	cause Cause
}

// Ok wraps a successfully fetched value.
func Ok[T any](v T) Field[T] { return Field[T]{value: v} }

// Degraded wraps a default value standing in for a failed fetch.
func Degraded[T any](def T, cause Cause) Field[T] {
	if cause == CauseNone {
		cause = CauseTransport
	}
	return Field[T]{value: def, cause: cause}
}

// Value returns the carried value, real or default.
func (f Field[T]) Value() T { return f.value }

// OK reports whether the value was actually fetched.
func (f Field[T]) OK() bool { return f.cause == CauseNone }

// Cause returns the degradation cause, or CauseNone.
func (f Field[T]) Cause() Cause { return f.cause }

// Snapshot is the point-in-time composite for the current identity.
// Individual fields may be refreshed by mutation calls without a full
// rebuild; staleness is corrected by the next identity-change refresh.
type Snapshot struct {
	Identity  *identity.Identity
	Profile   Field[profile.Profile]
	Orgs      Field[[]profile.Org]
	Stats     Field[profile.Stats]
	Shortcuts Field[[]shortcut.Shortcut]
	Tokens    Field[entitlement.Ledger]
}

// Guest reports whether no identity is resolved.
func (s *Snapshot) Guest() bool { return s.Identity == nil }

// NewGuest is the all-defaults snapshot used while signed out.
func NewGuest() *Snapshot {
	return &Snapshot{
		Profile:   Ok(profile.Profile{DisplayName: "Guest", Tier: profile.TierFree, Roles: append([]string(nil), profile.DefaultRoles...), Devices: 1}),
		Orgs:      Ok[[]profile.Org](nil),
		Stats:     Ok(profile.DefaultStats()),
		Shortcuts: Ok[[]shortcut.Shortcut](nil),
		Tokens:    Ok(entitlement.ZeroLedger()),
	}
}

// Clone returns a shallow copy safe to hand to subscribers; fields are
// treated as immutable once published.
func (s *Snapshot) Clone() *Snapshot {
	cp := *s
	return &cp
}
