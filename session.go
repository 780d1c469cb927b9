package accounts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/blacklink/accounts/cache"
	memorycache "github.com/blacklink/accounts/cache/memory"
	"github.com/blacklink/accounts/docstore"
	"github.com/blacklink/accounts/entitlement"
	"github.com/blacklink/accounts/hook"
	"github.com/blacklink/accounts/identity"
	"github.com/blacklink/accounts/profile"
	"github.com/blacklink/accounts/session"
	"github.com/blacklink/accounts/shortcut"
	"github.com/blacklink/accounts/username"
)

// Session is the account core engine: it assembles the per-identity
// snapshot, enforces username uniqueness, and maintains the token ledger.
type Session struct {
	store  docstore.Store
	cache  cache.Cache
	hooks  *hook.Registry
	logger *slog.Logger

	// Configuration
	entitlementCacheTTL time.Duration
	cohort              username.CohortPolicy
	orgLimit            int
	now                 func() time.Time

	mu   sync.RWMutex
	snap *session.Snapshot

	subMu   sync.Mutex
	subs    map[int]chan *session.Snapshot
	nextSub int
}

// New creates a new Session engine.
func New(s docstore.Store, opts ...Option) *Session {
	e := &Session{
		store:               s,
		hooks:               hook.NewRegistry(),
		logger:              slog.Default(),
		entitlementCacheTTL: 5 * time.Minute,
		cohort:              username.DefaultCohortPolicy(),
		orgLimit:            20,
		now:                 time.Now,
		snap:                session.NewGuest(),
		subs:                make(map[int]chan *session.Snapshot),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.cache == nil {
		e.cache = memorycache.New(time.Minute)
	}

	return e
}

// Option configures a Session instance.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Session) {
		e.logger = logger
		e.hooks.WithLogger(logger)
	}
}

// WithCache sets the entitlement cache backend.
func WithCache(c cache.Cache) Option {
	return func(e *Session) {
		e.cache = c
	}
}

// WithEntitlementCacheTTL sets the entitlement cache TTL.
func WithEntitlementCacheTTL(ttl time.Duration) Option {
	return func(e *Session) {
		e.entitlementCacheTTL = ttl
	}
}

// WithCohortPolicy sets the username cohort suffix policy.
func WithCohortPolicy(p username.CohortPolicy) Option {
	return func(e *Session) {
		e.cohort = p
	}
}

// WithOrgLimit bounds the organization membership query.
func WithOrgLimit(n int) Option {
	return func(e *Session) {
		e.orgLimit = n
	}
}

// WithHook registers a hook.
func WithHook(h hook.Hook) Option {
	return func(e *Session) {
		_ = e.hooks.Register(h) //nolint:errcheck // best-effort hook registration during init
	}
}

// WithClock sets the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(e *Session) {
		e.now = now
	}
}

// Start prepares the backend and initializes hooks.
func (e *Session) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.hooks.EmitInit(ctx, e)

	e.logger.Info("accounts session started",
		"cache_ttl", e.entitlementCacheTTL,
		"org_limit", e.orgLimit,
	)

	return nil
}

// Stop shuts down the engine and closes the store.
func (e *Session) Stop() error {
	ctx := context.Background()
	e.hooks.EmitShutdown(ctx)

	e.subMu.Lock()
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
	e.subMu.Unlock()

	return e.store.Close()
}

// Snapshot returns the current session snapshot.
func (e *Session) Snapshot() *session.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.Clone()
}

// Subscribe returns a channel receiving every published snapshot and a
// function that cancels the subscription. The channel holds one pending
// snapshot; a slow consumer sees the newest state, not every intermediate.
func (e *Session) Subscribe() (<-chan *session.Snapshot, func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	id := e.nextSub
	e.nextSub++
	ch := make(chan *session.Snapshot, 1)
	e.subs[id] = ch

	return ch, func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		if c, ok := e.subs[id]; ok {
			close(c)
			delete(e.subs, id)
		}
	}
}

// OnIdentityChanged rebuilds the session snapshot for a new identity.
// A nil identity resets to the guest state without remote calls. Otherwise
// six independent reads run concurrently; each failure degrades only its
// own field and never aborts the others.
func (e *Session) OnIdentityChanged(ctx context.Context, ident *identity.Identity) *session.Snapshot {
	if ident == nil {
		snap := session.NewGuest()
		e.mu.Lock()
		e.snap = snap
		e.mu.Unlock()

		e.publish(snap)
		e.hooks.EmitSignedOut(ctx)
		return snap.Clone()
	}

	snap := e.bootstrap(ctx, *ident)

	e.mu.Lock()
	e.snap = snap
	e.mu.Unlock()

	e.publish(snap)
	e.hooks.EmitSessionRefreshed(ctx, snap.Clone())
	return snap.Clone()
}

// Refresh re-runs the bootstrap for the current identity.
func (e *Session) Refresh(ctx context.Context) *session.Snapshot {
	return e.OnIdentityChanged(ctx, e.currentIdentity())
}

// SetPhoto merge-writes the profile photo and updates the snapshot. A
// missing profile document is recreated from the identity defaults so the
// write never mints a partial document.
func (e *Session) SetPhoto(ctx context.Context, url string) error {
	ident := e.currentIdentity()
	if ident == nil {
		return ErrNoIdentity
	}

	now := e.now()
	fields := map[string]any{
		"photoURL":  url,
		"updatedAt": now,
	}
	if _, err := e.store.Get(ctx, docstore.Users, ident.UID); docstore.IsNotFound(err) {
		def := profile.Default(*ident, now)
		def.PhotoURL = url
		fields = def.Fields()
	} else if err != nil {
		return err
	}

	if err := e.store.Set(ctx, docstore.Users, ident.UID, fields, true); err != nil {
		return err
	}

	e.mu.Lock()
	p := e.snap.Profile.Value()
	p.PhotoURL = url
	p.UpdatedAt = e.now()
	e.snap.Profile = replaceValue(e.snap.Profile, p)
	snap := e.snap.Clone()
	e.mu.Unlock()

	e.publish(snap)
	e.hooks.EmitPhotoUpdated(ctx, ident.UID, url)
	return nil
}

// bootstrap fans out the six reads and assembles the composite snapshot.
func (e *Session) bootstrap(ctx context.Context, ident identity.Identity) *session.Snapshot {
	snap := &session.Snapshot{Identity: &ident}

	var (
		wg            sync.WaitGroup
		reverseHandle string
	)

	wg.Add(6)

	go func() {
		defer wg.Done()
		snap.Profile = e.readProfile(ctx, ident)
	}()

	go func() {
		defer wg.Done()
		snap.Orgs = e.readOrgs(ctx, ident.UID)
	}()

	go func() {
		defer wg.Done()
		snap.Stats = e.readStats(ctx)
	}()

	go func() {
		defer wg.Done()
		snap.Shortcuts = e.readShortcuts(ctx, ident.UID)
	}()

	go func() {
		defer wg.Done()
		snap.Tokens = e.readLedger(ctx, ident.UID)
	}()

	go func() {
		defer wg.Done()
		reverseHandle = e.reverseLookupHandle(ctx, ident.UID)
	}()

	wg.Wait()

	// Username policy: the profile value wins; the reverse lookup only
	// fills the gap in the snapshot, never mutates the stored profile.
	p := snap.Profile.Value()
	switch {
	case p.Username == "" && reverseHandle != "":
		p.Username = reverseHandle
		snap.Profile = replaceValue(snap.Profile, p)
	case p.Username != "" && reverseHandle != "" && p.Username != reverseHandle:
		e.logger.Warn("username reservation drift",
			"uid", ident.UID,
			"profile", p.Username,
			"reservation", reverseHandle,
		)
	}

	return snap
}

func (e *Session) readProfile(ctx context.Context, ident identity.Identity) session.Field[profile.Profile] {
	doc, err := e.store.Get(ctx, docstore.Users, ident.UID)
	if err == nil {
		return session.Ok(profile.FromDoc(doc, ident))
	}

	def := profile.Default(ident, e.now())
	if docstore.IsNotFound(err) {
		// Lazily create the profile from the identity claims.
		if werr := e.store.Set(ctx, docstore.Users, ident.UID, def.Fields(), true); werr != nil {
			e.logger.Warn("profile write-back failed", "uid", ident.UID, "error", werr)
		}
		return session.Ok(def)
	}

	e.logDegraded("profile", ident.UID, err)
	return session.Degraded(def, session.CauseOf(err))
}

func (e *Session) readOrgs(ctx context.Context, uid string) session.Field[[]profile.Org] {
	docs, err := e.store.Query(ctx, docstore.Organizations,
		[]docstore.Filter{docstore.WhereContains("members", uid)}, e.orgLimit)
	if err != nil {
		e.logDegraded("organizations", uid, err)
		return session.Degraded[[]profile.Org](nil, session.CauseOf(err))
	}

	orgs := make([]profile.Org, 0, len(docs))
	for _, doc := range docs {
		orgs = append(orgs, profile.OrgFromDoc(doc))
	}
	return session.Ok(orgs)
}

func (e *Session) readStats(ctx context.Context) session.Field[profile.Stats] {
	doc, err := e.store.Get(ctx, docstore.Stats, docstore.StatsGlobal)
	if err != nil {
		e.logDegraded("stats", docstore.StatsGlobal, err)
		return session.Degraded(profile.DefaultStats(), session.CauseOf(err))
	}
	return session.Ok(profile.StatsFromDoc(doc))
}

func (e *Session) readShortcuts(ctx context.Context, uid string) session.Field[[]shortcut.Shortcut] {
	docs, err := e.store.Query(ctx, docstore.Shortcuts,
		[]docstore.Filter{docstore.Where("userId", uid)}, 0)
	if err != nil {
		e.logDegraded("shortcuts", uid, err)
		return session.Degraded[[]shortcut.Shortcut](nil, session.CauseOf(err))
	}

	shortcuts := make([]shortcut.Shortcut, 0, len(docs))
	for _, doc := range docs {
		shortcuts = append(shortcuts, shortcut.FromDoc(doc))
	}
	return session.Ok(shortcuts)
}

func (e *Session) readLedger(ctx context.Context, uid string) session.Field[entitlement.Ledger] {
	doc, err := e.store.Get(ctx, docstore.Tokens, uid)
	if err == nil {
		return session.Ok(entitlement.LedgerFromDoc(doc))
	}
	if docstore.IsNotFound(err) {
		// Absence is a valid state: FREE users carry no ledger document.
		return session.Ok(entitlement.ZeroLedger())
	}

	e.logDegraded("tokens", uid, err)
	return session.Degraded(entitlement.ZeroLedger(), session.CauseOf(err))
}

// reverseLookupHandle finds the reservation pointing at this uid, if any.
func (e *Session) reverseLookupHandle(ctx context.Context, uid string) string {
	docs, err := e.store.Query(ctx, docstore.Usernames,
		[]docstore.Filter{docstore.Where("uid", uid)}, 1)
	if err != nil {
		e.logDegraded("username", uid, err)
		return ""
	}
	if len(docs) == 0 {
		return ""
	}
	return username.ReservationFromDoc(docs[0]).Handle
}

func (e *Session) logDegraded(resource, id string, err error) {
	e.logger.Warn("session read degraded",
		"resource", resource,
		"id", id,
		"cause", string(session.CauseOf(err)),
		"error", err,
	)
}

// publish delivers a snapshot to every subscriber without blocking. A full
// channel is drained first so subscribers always see the newest state.
func (e *Session) publish(snap *session.Snapshot) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	for _, ch := range e.subs {
		select {
		case ch <- snap.Clone():
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap.Clone():
			default:
			}
		}
	}
}

// currentIdentity returns the resolved identity or nil.
func (e *Session) currentIdentity() *identity.Identity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.Identity
}

// replaceValue swaps the value of a field while preserving its cause tag.
func replaceValue[T any](f session.Field[T], v T) session.Field[T] {
	if f.OK() {
		return session.Ok(v)
	}
	return session.Degraded(v, f.Cause())
}
