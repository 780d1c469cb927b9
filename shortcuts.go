package accounts

import (
	"context"

	"github.com/blacklink/accounts/docstore"
	"github.com/blacklink/accounts/id"
	"github.com/blacklink/accounts/shortcut"
)

// AddShortcut creates a quick-launch shortcut for the current identity and
// appends it to the snapshot.
func (e *Session) AddShortcut(ctx context.Context, sc shortcut.Shortcut) (shortcut.Shortcut, error) {
	ident := e.currentIdentity()
	if ident == nil {
		return shortcut.Shortcut{}, ErrNoIdentity
	}

	if sc.ID.IsNil() {
		sc.ID = id.NewShortcutID()
	}
	sc.UserID = ident.UID
	sc.ApplyDefaults()
	now := e.now()
	sc.CreatedAt = now
	sc.UpdatedAt = now

	if err := e.store.Set(ctx, docstore.Shortcuts, sc.ID.String(), sc.Fields(), false); err != nil {
		return shortcut.Shortcut{}, err
	}

	e.mu.Lock()
	cur := e.snap.Shortcuts.Value()
	list := make([]shortcut.Shortcut, 0, len(cur)+1)
	list = append(append(list, cur...), sc)
	e.snap.Shortcuts = replaceValue(e.snap.Shortcuts, list)
	snap := e.snap.Clone()
	e.mu.Unlock()

	e.publish(snap)
	e.hooks.EmitShortcutAdded(ctx, sc)

	return sc, nil
}

// UpdateShortcut merge-writes a shortcut and refreshes it in the snapshot.
// The shortcut must belong to the current identity.
func (e *Session) UpdateShortcut(ctx context.Context, sc shortcut.Shortcut) (shortcut.Shortcut, error) {
	ident := e.currentIdentity()
	if ident == nil {
		return shortcut.Shortcut{}, ErrNoIdentity
	}
	if sc.ID.IsNil() {
		return shortcut.Shortcut{}, ErrShortcutNotFound
	}

	sc.UserID = ident.UID
	sc.ApplyDefaults()
	sc.UpdatedAt = e.now()

	if err := e.store.Set(ctx, docstore.Shortcuts, sc.ID.String(), sc.Fields(), true); err != nil {
		return shortcut.Shortcut{}, err
	}

	e.mu.Lock()
	cur := e.snap.Shortcuts.Value()
	list := make([]shortcut.Shortcut, len(cur))
	for i, existing := range cur {
		if existing.ID == sc.ID {
			if sc.CreatedAt.IsZero() {
				sc.CreatedAt = existing.CreatedAt
			}
			list[i] = sc
			continue
		}
		list[i] = existing
	}
	e.snap.Shortcuts = replaceValue(e.snap.Shortcuts, list)
	snap := e.snap.Clone()
	e.mu.Unlock()

	e.publish(snap)
	return sc, nil
}

// DeleteShortcut removes a shortcut document and drops it from the
// snapshot. Deleting an absent shortcut is not an error.
func (e *Session) DeleteShortcut(ctx context.Context, shortcutID id.ShortcutID) error {
	ident := e.currentIdentity()
	if ident == nil {
		return ErrNoIdentity
	}
	if shortcutID.IsNil() {
		return ErrShortcutNotFound
	}

	if err := e.store.Delete(ctx, docstore.Shortcuts, shortcutID.String()); err != nil {
		return err
	}

	e.mu.Lock()
	cur := e.snap.Shortcuts.Value()
	kept := make([]shortcut.Shortcut, 0, len(cur))
	for _, sc := range cur {
		if sc.ID != shortcutID {
			kept = append(kept, sc)
		}
	}
	e.snap.Shortcuts = replaceValue(e.snap.Shortcuts, kept)
	snap := e.snap.Clone()
	e.mu.Unlock()

	e.publish(snap)
	e.hooks.EmitShortcutDeleted(ctx, ident.UID, shortcutID.String())

	return nil
}
