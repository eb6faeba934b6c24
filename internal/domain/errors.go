package domain

import (
	"errors"
	"fmt"
)

// Generic
var (
	ErrInvalidInput   = errors.New("invalid input provided")
	ErrNotFound       = errors.New("not found")
	ErrInternalServer = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
)

// Booking policy
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrSlotUnavailable  = errors.New("no open availability slot for the requested time")
)

// Meeting state
var (
	ErrInvalidStateTransition = errors.New("invalid meeting state transition")
	ErrNotAParticipant        = errors.New("user is not a participant of this meeting")
)

// Ledger
var (
	// ErrWalletContention is returned when optimistic balance updates keep
	// losing the version race after the retry budget is spent.
	ErrWalletContention = errors.New("wallet update contention")

	// ErrLedgerInconsistency marks the one path that requires manual
	// reconciliation: a transaction row was written, the balance update
	// failed, and the compensating delete failed too.
	ErrLedgerInconsistency = errors.New("ledger inconsistency, manual reconciliation required")
)

// InsufficientCreditsError carries the counts the caller needs to act on
// the rejection.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

var ErrInsufficientCredits = errors.New("insufficient credits")

func (e *InsufficientCreditsError) Unwrap() error { return ErrInsufficientCredits }

// ConfirmationRequiredError is the two-phase cancellation signal, not a
// failure: the caller must resubmit with confirmed=true to accept the fee.
type ConfirmationRequiredError struct {
	Fee          int64
	RefundCredit bool
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("cancellation requires confirmation: fee %d", e.Fee)
}

func AsConfirmationRequired(err error) (*ConfirmationRequiredError, bool) {
	var cr *ConfirmationRequiredError
	if errors.As(err, &cr) {
		return cr, true
	}
	return nil, false
}
