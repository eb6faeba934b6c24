package policy

import (
	"testing"

	"meeting-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideCancellation(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.MeetingStatus
		fee     int64
		want    CancellationDecision
		wantErr error
	}{
		{
			name:   "confirmed meeting always charges, never refunds the hold",
			status: domain.MeetingStatusConfirmed,
			fee:    500,
			want: CancellationDecision{
				Fee:                  500,
				RefundCredit:         false,
				RequiresConfirmation: true,
			},
		},
		{
			name:   "confirmed with zero fee still requires confirmation",
			status: domain.MeetingStatusConfirmed,
			fee:    0,
			want: CancellationDecision{
				Fee:                  0,
				RefundCredit:         false,
				RequiresConfirmation: true,
			},
		},
		{
			name:   "pending with a configured fee charges but refunds the hold",
			status: domain.MeetingStatusPending,
			fee:    300,
			want: CancellationDecision{
				Fee:                  300,
				RefundCredit:         true,
				RequiresConfirmation: true,
			},
		},
		{
			name:   "pending with no fee is free and needs no confirmation",
			status: domain.MeetingStatusPending,
			fee:    0,
			want: CancellationDecision{
				Fee:                  0,
				RefundCredit:         true,
				RequiresConfirmation: false,
			},
		},
		{
			name:    "already canceled is terminal",
			status:  domain.MeetingStatusCanceled,
			wantErr: domain.ErrInvalidStateTransition,
		},
		{
			name:    "completed is terminal",
			status:  domain.MeetingStatusCompleted,
			wantErr: domain.ErrInvalidStateTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &domain.Meeting{ID: "m1", Status: tt.status, CancellationFee: tt.fee}
			got, err := DecideCancellation(m)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Fee, got.Fee)
			assert.Equal(t, tt.want.RefundCredit, got.RefundCredit)
			assert.Equal(t, tt.want.RequiresConfirmation, got.RequiresConfirmation)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestWarningText(t *testing.T) {
	withFee := WarningText(CancellationDecision{Fee: 500, RefundCredit: false}, "USD", 100)
	assert.Contains(t, withFee, "5.00 USD")
	assert.Contains(t, withFee, "not be returned")

	withRefund := WarningText(CancellationDecision{Fee: 250, RefundCredit: true}, "USD", 100)
	assert.Contains(t, withRefund, "2.50 USD")
	assert.Contains(t, withRefund, "will be returned")

	free := WarningText(CancellationDecision{Fee: 0, RefundCredit: true}, "USD", 100)
	assert.Contains(t, free, "free")
}
