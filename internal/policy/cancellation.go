package policy

import (
	"fmt"

	"meeting-service/internal/domain"
)

// CancellationDecision is what canceling a meeting right now would do.
// It is computed server-side before any irreversible charge; the client
// warning is presentation, this is the enforcement.
type CancellationDecision struct {
	Fee                  int64  `json:"fee"`
	RefundCredit         bool   `json:"refund_credit"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	Reason               string `json:"reason"`
}

// DecideCancellation applies the fee rules in priority order. The charge
// always falls on whoever initiates the cancellation, never on the
// counterparty, regardless of role.
func DecideCancellation(m *domain.Meeting) (CancellationDecision, error) {
	if m.IsTerminal() {
		return CancellationDecision{}, fmt.Errorf("meeting is %s: %w", m.Status, domain.ErrInvalidStateTransition)
	}

	if m.Status == domain.MeetingStatusConfirmed {
		// Confirmed meetings always charge and the credit hold is never
		// returned, no exceptions.
		return CancellationDecision{
			Fee:                  m.CancellationFee,
			RefundCredit:         false,
			RequiresConfirmation: true,
			Reason:               "meeting is confirmed; the cancellation fee applies and held credits are not returned",
		}, nil
	}

	if m.CancellationFee > 0 {
		return CancellationDecision{
			Fee:                  m.CancellationFee,
			RefundCredit:         true,
			RequiresConfirmation: true,
			Reason:               "a cancellation fee is configured for this meeting; held credits are returned",
		}, nil
	}

	return CancellationDecision{
		Fee:                  0,
		RefundCredit:         true,
		RequiresConfirmation: false,
		Reason:               "meeting is pending with no fee configured; held credits are returned",
	}, nil
}

// WarningText renders the decision for the mandatory pre-cancellation
// preview shown to the user.
func WarningText(d CancellationDecision, currency string, scale int) string {
	if scale <= 0 {
		scale = 100
	}
	if d.Fee > 0 {
		major := float64(d.Fee) / float64(scale)
		if d.RefundCredit {
			return fmt.Sprintf("Canceling now charges a fee of %.2f %s. Your held credits will be returned.", major, currency)
		}
		return fmt.Sprintf("Canceling now charges a fee of %.2f %s. Your held credits will not be returned.", major, currency)
	}
	return "Canceling now is free. Your held credits will be returned."
}
