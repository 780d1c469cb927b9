package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/blacklink/accounts/docstore"
	"github.com/blacklink/accounts/entitlement"
)

func entitlementKey(uid string) string { return "entitlement:" + uid }

// Entitlement resolves the current identity's subscription record and
// token ledger, cache-first. Any remote failure during a cache-miss
// resolution returns the default FREE / zero-ledger snapshot instead of an
// error; entitlement checks must never crash a caller. Defaults returned
// on failure are never cached.
func (e *Session) Entitlement(ctx context.Context) (entitlement.Snapshot, error) {
	ident := e.currentIdentity()
	if ident == nil {
		return entitlement.Snapshot{}, ErrNoIdentity
	}
	uid := ident.UID

	if snap, ok := e.cache.Get(ctx, entitlementKey(uid)); ok {
		return snap, nil
	}

	now := e.now()

	rec, ok := e.resolveRecord(ctx, uid, ident.Email)
	if !ok {
		return entitlement.DefaultSnapshot(uid, ident.Email, now), nil
	}

	ledger, ok := e.resolveLedger(ctx, uid, rec)
	if !ok {
		return entitlement.DefaultSnapshot(uid, ident.Email, now), nil
	}

	snap := entitlement.Snapshot{Record: rec, Tokens: ledger}
	e.cache.Set(ctx, entitlementKey(uid), snap, e.entitlementCacheTTL)
	e.hooks.EmitEntitlementResolved(ctx, snap)

	return snap, nil
}

// resolveRecord reads the subscription record, synthesizing and persisting
// the default FREE record when none is stored. ok is false on any remote
// failure, which the caller fails soft on.
func (e *Session) resolveRecord(ctx context.Context, uid, email string) (entitlement.Record, bool) {
	doc, err := e.store.Get(ctx, docstore.Subscriptions, uid)
	if err == nil {
		return entitlement.RecordFromDoc(doc), true
	}
	if !docstore.IsNotFound(err) {
		e.logger.Warn("entitlement record read failed", "uid", uid, "error", err)
		return entitlement.Record{}, false
	}

	rec := entitlement.DefaultRecord(uid, email, e.now())
	if werr := e.store.Set(ctx, docstore.Subscriptions, uid, rec.Fields(), true); werr != nil {
		e.logger.Warn("entitlement record write-back failed", "uid", uid, "error", werr)
		return entitlement.Record{}, false
	}
	return rec, true
}

// resolveLedger reads the token ledger. Absent ledgers are allocated for
// tiers at or above ULTRA; FREE users resolve to the zero ledger without a
// write.
func (e *Session) resolveLedger(ctx context.Context, uid string, rec entitlement.Record) (entitlement.Ledger, bool) {
	doc, err := e.store.Get(ctx, docstore.Tokens, uid)
	if err == nil {
		return entitlement.LedgerFromDoc(doc), true
	}
	if !docstore.IsNotFound(err) {
		e.logger.Warn("token ledger read failed", "uid", uid, "error", err)
		return entitlement.Ledger{}, false
	}

	if entitlement.AllocationFor(rec.Tier) == 0 {
		return entitlement.ZeroLedger(), true
	}

	ledger := entitlement.NewLedger(uid, rec.Tier, e.now())
	if werr := e.store.Set(ctx, docstore.Tokens, uid, ledger.Fields(), false); werr != nil {
		e.logger.Warn("token ledger write-back failed", "uid", uid, "error", werr)
		return entitlement.Ledger{}, false
	}
	return ledger, true
}

// DebitTokens spends amount credits from the current identity's ledger.
// The balance read bypasses the entitlement cache; the decrement commits
// atomically so concurrent debits from the same user serialize instead of
// losing updates. A failed debit leaves the ledger untouched.
func (e *Session) DebitTokens(ctx context.Context, amount int64) (entitlement.Balance, error) {
	ident := e.currentIdentity()
	if ident == nil {
		return entitlement.Balance{}, ErrNoIdentity
	}
	uid := ident.UID

	if amount <= 0 {
		return entitlement.Balance{}, ErrInvalidAmount
	}

	var (
		ledger entitlement.Ledger
		now    = e.now()
	)
	err := e.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		doc, err := tx.Get(ctx, docstore.Tokens, uid)
		if err != nil {
			if docstore.IsNotFound(err) {
				return ErrNoAllocation
			}
			return err
		}

		ledger = entitlement.LedgerFromDoc(doc)
		if ledger.Remaining < amount {
			return &InsufficientBalanceError{
				Remaining: ledger.Remaining,
				Requested: amount,
			}
		}

		ledger.Remaining -= amount
		ledger.Used += amount
		ledger.LastUsedAt = now

		tx.Set(ctx, docstore.Tokens, uid, map[string]any{
			"remaining":  ledger.Remaining,
			"used":       ledger.Used,
			"lastUsedAt": now,
		}, true)
		return nil
	})
	if err != nil {
		var insufficient *InsufficientBalanceError
		if errors.As(err, &insufficient) {
			e.hooks.EmitDebitDenied(ctx, uid, amount, insufficient.Remaining)
			return entitlement.Balance{}, err
		}
		if IsBusiness(err) {
			return entitlement.Balance{}, err
		}
		return entitlement.Balance{}, fmt.Errorf("%w: debit %d: %v", ErrTransactionFailed, amount, err)
	}

	// The next Entitlement call must observe the new balance.
	e.cache.Invalidate(ctx, entitlementKey(uid))

	e.mu.Lock()
	e.snap.Tokens = replaceValue(e.snap.Tokens, ledger)
	snap := e.snap.Clone()
	e.mu.Unlock()

	e.publish(snap)
	e.hooks.EmitTokensDebited(ctx, uid, amount, ledger.Remaining)

	return entitlement.Balance{Remaining: ledger.Remaining, Used: ledger.Used}, nil
}
