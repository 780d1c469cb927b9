package accounts

import (
	"github.com/blacklink/accounts/entitlement"
	"github.com/blacklink/accounts/id"
	"github.com/blacklink/accounts/identity"
	"github.com/blacklink/accounts/session"
	"github.com/blacklink/accounts/types"
)

// Re-export common types for convenience so users don't have to import the
// model packages.

// Identity is re-exported from the identity package.
type Identity = identity.Identity

// SessionSnapshot is re-exported from the session package.
type SessionSnapshot = session.Snapshot

// EntitlementSnapshot is re-exported from the entitlement package.
type EntitlementSnapshot = entitlement.Snapshot

// Balance is re-exported from the entitlement package.
type Balance = entitlement.Balance

// Entity is re-exported from the types package.
type Entity = types.Entity

// ID is the primary identifier type for generated entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

// Re-export Entity constructor
var NewEntity = types.NewEntity
