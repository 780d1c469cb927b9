package accounts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blacklink/accounts/docstore"
	"github.com/blacklink/accounts/docstore/memory"
	"github.com/blacklink/accounts/identity"
	"github.com/blacklink/accounts/session"
)

// fakeClock is a deterministic time source for tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *memory.Store, *fakeClock) {
	t.Helper()

	store := memory.New()
	clk := newFakeClock()

	opts = append([]Option{WithClock(clk.Now)}, opts...)
	sess := New(store, opts...)
	require.NoError(t, sess.Start(context.Background()))

	return sess, store, clk
}

func signIn(t *testing.T, sess *Session, uid, name, email string) *session.Snapshot {
	t.Helper()
	return sess.OnIdentityChanged(context.Background(), &identity.Identity{
		UID:         uid,
		DisplayName: name,
		Email:       email,
	})
}

func TestGuestSnapshot(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	snap := sess.OnIdentityChanged(ctx, nil)

	assert.True(t, snap.Guest())
	assert.Equal(t, "Guest", snap.Profile.Value().DisplayName)
	assert.Zero(t, snap.Tokens.Value().Remaining)
	// Guest reset makes no remote calls, so nothing was written.
	assert.Zero(t, store.Len(docstore.Users))
}

func TestFreshUserBootstrap(t *testing.T) {
	sess, store, _ := newTestSession(t)

	snap := signIn(t, sess, "u2", "Dana", "dana@example.com")

	require.False(t, snap.Guest())
	require.True(t, snap.Profile.OK())
	prof := snap.Profile.Value()
	assert.Equal(t, "Dana", prof.DisplayName)
	assert.Equal(t, "dana@example.com", prof.Email)
	assert.Equal(t, []string{"member"}, prof.Roles)

	assert.True(t, snap.Orgs.OK())
	assert.Empty(t, snap.Orgs.Value())
	assert.True(t, snap.Shortcuts.OK())
	assert.Empty(t, snap.Shortcuts.Value())
	assert.True(t, snap.Tokens.OK())
	assert.Zero(t, snap.Tokens.Value().Remaining)

	// The profile was lazily created from the identity claims.
	assert.Equal(t, 1, store.Len(docstore.Users))
}

func TestBootstrapDisplayNameFallback(t *testing.T) {
	sess, _, _ := newTestSession(t)

	snap := signIn(t, sess, "u3", "", "")
	assert.Equal(t, "Guest", snap.Profile.Value().DisplayName)
}

func TestPartialFailureIsolation(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	_ = store.Set(ctx, docstore.Shortcuts, "q1", map[string]any{
		"userId": "u1", "name": "Mail", "url": "https://mail",
	}, false)
	store.FailReads(docstore.Stats, docstore.ErrPermissionDenied)

	snap := signIn(t, sess, "u1", "Ada", "ada@example.com")

	// The denied stats read taints only its own field.
	require.False(t, snap.Stats.OK())
	assert.Equal(t, session.CausePermissionDenied, snap.Stats.Cause())

	assert.True(t, snap.Profile.OK())
	require.True(t, snap.Shortcuts.OK())
	require.Len(t, snap.Shortcuts.Value(), 1)
	assert.Equal(t, "Mail", snap.Shortcuts.Value()[0].Name)
	assert.True(t, snap.Tokens.OK())
}

func TestBootstrapReadsStoredDocuments(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	_ = store.Set(ctx, docstore.Users, "u1", map[string]any{
		"displayName": "Ada Lovelace", "tier": "ULTRA", "username": "ada",
	}, false)
	_ = store.Set(ctx, docstore.Stats, docstore.StatsGlobal, map[string]any{
		"activeUsers": int64(42), "apiHealth": "Operational",
	}, false)
	_ = store.Set(ctx, docstore.Organizations, "o1", map[string]any{
		"name": "Analytical Engines", "members": []any{"u1", "u9"},
	}, false)
	_ = store.Set(ctx, docstore.Tokens, "u1", map[string]any{
		"monthlyAllocation": int64(10), "remaining": int64(7), "used": int64(3),
	}, false)

	snap := signIn(t, sess, "u1", "Ada", "ada@example.com")

	assert.Equal(t, "Ada Lovelace", snap.Profile.Value().DisplayName)
	assert.Equal(t, "ada", snap.Profile.Value().Username)
	require.Len(t, snap.Orgs.Value(), 1)
	assert.Equal(t, "Analytical Engines", snap.Orgs.Value()[0].Name)
	assert.Equal(t, 2, snap.Orgs.Value()[0].MemberCount())
	assert.Equal(t, int64(42), snap.Stats.Value().ActiveUsers)
	assert.Equal(t, int64(7), snap.Tokens.Value().Remaining)
}

func TestReverseLookupFillsUsername(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	// Profile exists without a username; a reservation points at the uid.
	_ = store.Set(ctx, docstore.Users, "u1", map[string]any{"displayName": "Ada"}, false)
	_ = store.Set(ctx, docstore.Usernames, "ada", map[string]any{"uid": "u1"}, false)

	snap := signIn(t, sess, "u1", "Ada", "")
	assert.Equal(t, "ada", snap.Profile.Value().Username)

	// The fill stays snapshot-only: the stored profile is untouched.
	doc, err := store.Get(ctx, docstore.Users, "u1")
	require.NoError(t, err)
	assert.Empty(t, doc.String("username"))
}

func TestProfileUsernameWinsOverReservation(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	_ = store.Set(ctx, docstore.Users, "u1", map[string]any{"username": "ada"}, false)
	_ = store.Set(ctx, docstore.Usernames, "lovelace", map[string]any{"uid": "u1"}, false)

	snap := signIn(t, sess, "u1", "Ada", "")
	assert.Equal(t, "ada", snap.Profile.Value().Username)
}

func TestSubscribePublishes(t *testing.T) {
	sess, _, _ := newTestSession(t)

	ch, cancel := sess.Subscribe()
	defer cancel()

	signIn(t, sess, "u1", "Ada", "")

	select {
	case snap := <-ch:
		assert.Equal(t, "u1", snap.Identity.UID)
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}
}

func TestSubscribeKeepsNewest(t *testing.T) {
	sess, _, _ := newTestSession(t)

	ch, cancel := sess.Subscribe()
	defer cancel()

	// Two publishes without a read: the slow consumer sees the newest.
	signIn(t, sess, "u1", "Ada", "")
	sess.OnIdentityChanged(context.Background(), nil)

	snap := <-ch
	assert.True(t, snap.Guest())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	sess, _, _ := newTestSession(t)

	ch, cancel := sess.Subscribe()
	cancel()

	signIn(t, sess, "u1", "Ada", "")

	_, open := <-ch
	assert.False(t, open)
}

func TestRefresh(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	signIn(t, sess, "u1", "Ada", "")

	_ = store.Set(ctx, docstore.Tokens, "u1", map[string]any{
		"monthlyAllocation": int64(10), "remaining": int64(10),
	}, false)

	snap := sess.Refresh(ctx)
	assert.Equal(t, int64(10), snap.Tokens.Value().Remaining)
}

func TestSetPhoto(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	signIn(t, sess, "u1", "Ada", "")
	require.NoError(t, sess.SetPhoto(ctx, "https://cdn/ada.png"))

	assert.Equal(t, "https://cdn/ada.png", sess.Snapshot().Profile.Value().PhotoURL)

	doc, err := store.Get(ctx, docstore.Users, "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/ada.png", doc.String("photoURL"))
}

func TestSetPhotoRecreatesMissingProfile(t *testing.T) {
	sess, store, _ := newTestSession(t)
	ctx := context.Background()

	signIn(t, sess, "u1", "Ada", "ada@example.com")

	// The profile document is gone, as after a failed bootstrap write-back.
	require.NoError(t, store.Delete(ctx, docstore.Users, "u1"))
	require.NoError(t, sess.SetPhoto(ctx, "https://cdn/ada.png"))

	// The write recreates the full default shape, not a photo-only stub.
	doc, err := store.Get(ctx, docstore.Users, "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/ada.png", doc.String("photoURL"))
	assert.Equal(t, "Ada", doc.String("displayName"))
	assert.Equal(t, "ada@example.com", doc.String("email"))
	assert.Equal(t, "FREE", doc.String("tier"))
}

func TestSetPhotoRequiresIdentity(t *testing.T) {
	sess, _, _ := newTestSession(t)
	assert.ErrorIs(t, sess.SetPhoto(context.Background(), "x"), ErrNoIdentity)
}
