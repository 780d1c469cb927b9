package accounts

import (
	"errors"
	"fmt"

	"github.com/blacklink/accounts/docstore"
)

// Sentinel errors for common failure scenarios.
var (
	// Contract violations
	ErrNoIdentity = errors.New("accounts: no identity resolved")

	// Username errors
	ErrEmptyHandle = errors.New("accounts: empty handle")
	ErrHandleTaken = errors.New("accounts: handle already taken")

	// Token errors
	ErrInvalidAmount       = errors.New("accounts: debit amount must be positive")
	ErrNoAllocation        = errors.New("accounts: no token allocation")
	ErrInsufficientBalance = errors.New("accounts: insufficient token balance")

	// Shortcut errors
	ErrShortcutNotFound = errors.New("accounts: shortcut not found")

	// Store errors
	ErrTransactionFailed = errors.New("accounts: transaction failed")
)

// InsufficientBalanceError reports a debit shortfall: how much the caller
// asked for against what the ledger still holds.
type InsufficientBalanceError struct {
	Remaining int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("accounts: insufficient token balance: requested %d, remaining %d", e.Requested, e.Remaining)
}

// Unwrap lets errors.Is match ErrInsufficientBalance.
func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Shortfall returns how many credits the debit was short.
func (e *InsufficientBalanceError) Shortfall() int64 { return e.Requested - e.Remaining }

// IsBusiness returns true for expected business outcomes that callers
// render to the user, as opposed to transport faults worth retrying.
func IsBusiness(err error) bool {
	return errors.Is(err, ErrEmptyHandle) ||
		errors.Is(err, ErrHandleTaken) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNoAllocation) ||
		errors.Is(err, ErrInsufficientBalance)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, docstore.ErrNotFound) || errors.Is(err, ErrShortcutNotFound)
}
