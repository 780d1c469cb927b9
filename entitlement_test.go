package accounts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blacklink/accounts/docstore"
	"github.com/blacklink/accounts/docstore/memory"
	"github.com/blacklink/accounts/entitlement"
)

func TestEntitlementRequiresIdentity(t *testing.T) {
	sess, _, _ := newTestSession(t)
	_, err := sess.Entitlement(context.Background())
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestEntitlementFreshUserWriteBackOnce(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	signIn(t, sess, "u2", "Dana", "dana@example.com")

	snap, err := sess.Entitlement(ctx)
	require.NoError(t, err)
	assert.Equal(t, "FREE", string(snap.Tier()))
	assert.Equal(t, entitlement.BaselineFeatures, snap.Features())
	assert.False(t, snap.HasUltra())
	assert.Zero(t, snap.Tokens.Remaining)

	// The default record was persisted exactly once; the second call is
	// served from cache and never double-creates.
	snap2, err := sess.Entitlement(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, snap2)
	assert.Equal(t, 1, store.Len(docstore.Subscriptions))

	// FREE users get no ledger document.
	assert.Zero(t, store.Len(docstore.Tokens))
}

func TestEntitlementUltraAllocatesLedger(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	_ = store.Set(ctx, docstore.Subscriptions, "u1", map[string]any{
		"tier": "ULTRA", "status": "active",
	}, false)
	signIn(t, sess, "u1", "Ada", "")

	snap, err := sess.Entitlement(ctx)
	require.NoError(t, err)
	assert.True(t, snap.HasUltra())
	assert.False(t, snap.HasUltraPlus())
	assert.Equal(t, int64(10), snap.Tokens.MonthlyAllocation)
	assert.Equal(t, int64(10), snap.Tokens.Remaining)
	assert.Zero(t, snap.Tokens.Used)

	doc, err := store.Get(ctx, docstore.Tokens, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), doc.Int64("monthlyAllocation"))
}

func TestEntitlementUltraPlusAllocation(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	_ = store.Set(ctx, docstore.Subscriptions, "u1", map[string]any{"tier": "ULTRA_PLUS"}, false)
	signIn(t, sess, "u1", "Ada", "")

	snap, err := sess.Entitlement(ctx)
	require.NoError(t, err)
	assert.True(t, snap.HasUltraPlus())
	assert.Equal(t, int64(25), snap.Tokens.MonthlyAllocation)
}

func TestEntitlementFailSoftNeverCached(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	signIn(t, sess, "u1", "Ada", "ada@example.com")
	store.FailReads(docstore.Subscriptions, docstore.ErrUnavailable)

	snap, err := sess.Entitlement(ctx)
	require.NoError(t, err, "entitlement checks must never crash the caller")
	assert.Equal(t, "FREE", string(snap.Tier()))

	// The fail-soft default was not cached: once the store recovers, the
	// next call resolves and persists the real record.
	store.FailReads(docstore.Subscriptions, nil)
	_, err = sess.Entitlement(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len(docstore.Subscriptions))
}

func TestEntitlementCacheTTLExpiry(t *testing.T) {
	sess, store, _ := newTestSession(t, WithEntitlementCacheTTL(time.Nanosecond))
	ctx := context.Background()

	_ = store.Set(ctx, docstore.Subscriptions, "u1", map[string]any{"tier": "FREE"}, false)
	signIn(t, sess, "u1", "Ada", "")

	_, err := sess.Entitlement(ctx)
	require.NoError(t, err)

	// The entry expires immediately, so a tier change is visible on the
	// next call instead of after five minutes.
	_ = store.Set(ctx, docstore.Subscriptions, "u1", map[string]any{"tier": "ULTRA"}, true)
	snap, err := sess.Entitlement(ctx)
	require.NoError(t, err)
	assert.True(t, snap.HasUltra())
}

func TestUpgradeThenDebit(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	_ = store.Set(ctx, docstore.Subscriptions, "u1", map[string]any{"tier": "ULTRA"}, false)
	signIn(t, sess, "u1", "Ada", "")

	snap, err := sess.Entitlement(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(10), snap.Tokens.Remaining)

	balance, err := sess.DebitTokens(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, entitlement.Balance{Remaining: 6, Used: 4}, balance)

	_, err = sess.DebitTokens(ctx, 10)
	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(6), insufficient.Remaining)
	assert.Equal(t, int64(10), insufficient.Requested)
	assert.Equal(t, int64(4), insufficient.Shortfall())

	// A failed debit leaves the ledger untouched.
	doc, err := store.Get(ctx, docstore.Tokens, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), doc.Int64("remaining"))
	assert.Equal(t, int64(4), doc.Int64("used"))
}

func TestDebitInvalidatesCache(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	_ = store.Set(ctx, docstore.Subscriptions, "u1", map[string]any{"tier": "ULTRA"}, false)
	signIn(t, sess, "u1", "Ada", "")

	snap, err := sess.Entitlement(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(10), snap.Tokens.Remaining)

	_, err = sess.DebitTokens(ctx, 3)
	require.NoError(t, err)

	// Well within the five minute TTL, yet the new balance is observed.
	snap, err = sess.Entitlement(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.Tokens.Remaining)
	assert.Equal(t, int64(3), snap.Tokens.Used)
}

func TestDebitMonotonicity(t *testing.T) {
	sess, store, clk := newTestSession(t)
	ctx := context.Background()

	_ = store.Set(ctx, docstore.Tokens, "u1", map[string]any{
		"monthlyAllocation": int64(25), "remaining": int64(25), "used": int64(0),
	}, false)
	signIn(t, sess, "u1", "Ada", "")

	for i := 0; i < 5; i++ {
		clk.Advance(time.Minute)
		_, err := sess.DebitTokens(ctx, 2)
		require.NoError(t, err)
	}

	doc, err := store.Get(ctx, docstore.Tokens, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), doc.Int64("remaining"))
	assert.Equal(t, int64(10), doc.Int64("used"))
	assert.Equal(t, clk.Now(), doc.Time("lastUsedAt"))
}

func TestConcurrentDebitsSerialize(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	// The same user debits from two engines at once, like two open tabs.
	sessA := New(store, WithClock(newFakeClock().Now))
	sessB := New(store, WithClock(newFakeClock().Now))
	require.NoError(t, sessA.Start(ctx))
	require.NoError(t, sessB.Start(ctx))

	_ = store.Set(ctx, docstore.Tokens, "u1", map[string]any{
		"monthlyAllocation": int64(25), "remaining": int64(25), "used": int64(0),
	}, false)
	signIn(t, sessA, "u1", "Ada", "")
	signIn(t, sessB, "u1", "Ada", "")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := sessA.DebitTokens(ctx, 1)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := sessB.DebitTokens(ctx, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every debit must land; a lost update would leave remaining above 5.
	doc, err := store.Get(ctx, docstore.Tokens, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), doc.Int64("remaining"))
	assert.Equal(t, int64(20), doc.Int64("used"))
}

func TestDebitNoAllocation(t *testing.T) {
	sess, _, _ := newTestSession(t)
	ctx := context.Background()

	signIn(t, sess, "u1", "Ada", "")

	_, err := sess.DebitTokens(ctx, 1)
	assert.ErrorIs(t, err, ErrNoAllocation)
	assert.True(t, IsBusiness(err))
}

func TestDebitInvalidAmount(t *testing.T) {
	sess, _, _ := newTestSession(t)
	ctx := context.Background()

	signIn(t, sess, "u1", "Ada", "")

	for _, amount := range []int64{0, -5} {
		_, err := sess.DebitTokens(ctx, amount)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestDebitRequiresIdentity(t *testing.T) {
	sess, _, _ := newTestSession(t)
	_, err := sess.DebitTokens(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestDebitUpdatesSnapshot(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	_ = store.Set(ctx, docstore.Tokens, "u1", map[string]any{
		"monthlyAllocation": int64(10), "remaining": int64(10), "used": int64(0),
	}, false)
	signIn(t, sess, "u1", "Ada", "")

	_, err := sess.DebitTokens(ctx, 4)
	require.NoError(t, err)

	tokens := sess.Snapshot().Tokens.Value()
	assert.Equal(t, int64(6), tokens.Remaining)
	assert.Equal(t, int64(4), tokens.Used)
}

func TestDebitEmitsHooks(t *testing.T) {
	rec := &recordingHook{}
	sess, store, _ := newTestSession(t, WithHook(rec))
	ctx := context.Background()

	_ = store.Set(ctx, docstore.Tokens, "u1", map[string]any{
		"monthlyAllocation": int64(10), "remaining": int64(10), "used": int64(0),
	}, false)
	signIn(t, sess, "u1", "Ada", "")

	_, err := sess.DebitTokens(ctx, 4)
	require.NoError(t, err)
	_, err = sess.DebitTokens(ctx, 100)
	require.Error(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []int64{4}, rec.debits)
	assert.Equal(t, []int64{100}, rec.denials)
}

func TestIsBusinessClassifier(t *testing.T) {
	assert.True(t, IsBusiness(ErrHandleTaken))
	assert.True(t, IsBusiness(&InsufficientBalanceError{Remaining: 1, Requested: 2}))
	assert.False(t, IsBusiness(errors.New("boom")))
	assert.False(t, IsBusiness(docstore.ErrUnavailable))
	assert.False(t, IsBusiness(nil))
}
