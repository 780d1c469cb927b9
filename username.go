package accounts

import (
	"context"
	"fmt"

	"github.com/blacklink/accounts/docstore"
	"github.com/blacklink/accounts/username"
)

// ClaimUsername reserves a handle for the current identity and writes it
// onto the profile, atomically releasing any previously held handle.
// Returns the final handle, which may differ from the desired one when the
// cohort suffix policy applies.
//
// Exactly one of two concurrent claims for the same final handle commits;
// the loser observes ErrHandleTaken and may retry with a different handle.
func (e *Session) ClaimUsername(ctx context.Context, desired string) (string, error) {
	ident := e.currentIdentity()
	if ident == nil {
		return "", ErrNoIdentity
	}
	uid := ident.UID

	handle := username.Normalize(desired)
	if handle == "" {
		return "", ErrEmptyHandle
	}

	e.mu.RLock()
	prof := e.snap.Profile.Value()
	e.mu.RUnlock()

	final := e.cohort.Apply(handle, prof.Organization, prof.Roles)

	// Claiming one's own held handle is a no-op success.
	if prof.Username == final {
		return final, nil
	}

	var previous string
	err := e.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		res, err := tx.Get(ctx, docstore.Usernames, final)
		if err != nil && !docstore.IsNotFound(err) {
			return err
		}
		if err == nil && res.String("uid") != uid {
			return ErrHandleTaken
		}

		tx.Set(ctx, docstore.Usernames, final, username.Reservation{
			Handle:    final,
			UID:       uid,
			CreatedAt: e.now(),
		}.Fields(), false)

		profDoc, err := tx.Get(ctx, docstore.Users, uid)
		if err != nil && !docstore.IsNotFound(err) {
			return err
		}
		previous = profDoc.String("username")

		tx.Set(ctx, docstore.Users, uid, map[string]any{
			"username":  final,
			"updatedAt": e.now(),
		}, true)

		// Release and acquire stay one atomic unit so a rename never
		// leaves two live reservations for the same uid.
		if previous != "" && previous != final {
			tx.Delete(ctx, docstore.Usernames, previous)
		}
		return nil
	})
	if err != nil {
		if IsBusiness(err) {
			return "", err
		}
		return "", fmt.Errorf("%w: claim %q: %v", ErrTransactionFailed, final, err)
	}

	e.mu.Lock()
	p := e.snap.Profile.Value()
	p.Username = final
	p.UpdatedAt = e.now()
	e.snap.Profile = replaceValue(e.snap.Profile, p)
	snap := e.snap.Clone()
	e.mu.Unlock()

	e.publish(snap)
	e.hooks.EmitUsernameClaimed(ctx, uid, final, previous)

	return final, nil
}
