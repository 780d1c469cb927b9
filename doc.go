// Package accounts provides the identity session and entitlement core for
// the Blacklink dashboard.
//
// Accounts is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - Session bootstrap: one consistent, partially-degradable snapshot of
//     who the user is and what they are entitled to, assembled from
//     independent concurrent reads
//   - Globally unique usernames enforced under concurrent claimants via
//     store transactions
//   - A metered token ledger with TTL-cached entitlement resolution and
//     atomic debits
//   - Quick-launch shortcut CRUD with write-through snapshot updates
//
// # Quick Start
//
// Create a session engine with your preferred store:
//
//	import (
//	    "github.com/blacklink/accounts"
//	    "github.com/blacklink/accounts/docstore/memory"
//	)
//
//	sess := accounts.New(memory.New())
//	if err := sess.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Stop()
//
// Feed it identity changes and read the snapshot:
//
//	snap := sess.OnIdentityChanged(ctx, &identity.Identity{UID: "u1"})
//	if snap.Stats.OK() {
//	    render(snap.Stats.Value())
//	}
//
// # Failure semantics
//
// Bootstrap reads fail soft: a denied or unreachable resource degrades only
// its own snapshot field, tagged with a cause, and never aborts the others.
// Business outcomes (ErrHandleTaken, InsufficientBalanceError) come back as
// typed results; only genuine transport faults surface as wrapped errors.
//
// # Entitlements
//
// Entitlement resolution is cache-first with a five minute default TTL and
// write-back creation of absent records:
//
//	ent, err := sess.Entitlement(ctx)
//	if ent.HasUltra() {
//	    balance, err := sess.DebitTokens(ctx, 10)
//	    ...
//	}
//
// Debits bypass the cache, commit atomically, and invalidate the cached
// entitlement so the next read observes the new balance.
//
// # TypeID
//
// Generated entities use TypeID for globally unique, type-safe identifiers:
//
//	ql_01h2xcejqtf2nbrexx3vqjhp41    // Shortcut ID
//	aevt_01h455vb4pex5vsknk084sn02q  // Audit event ID
//
// TypeIDs are K-sortable, giving natural time-ordering in indexes.
package accounts
