package domain

import (
	"time"
)

type WalletBalance struct {
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"` // minor currency units, never below zero
	Currency  string    `json:"currency"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TxType string

const (
	TxTypeTopup           TxType = "topup"
	TxTypeCreditPurchase  TxType = "credit_purchase"
	TxTypeSubscription    TxType = "subscription"
	TxTypeCancellationFee TxType = "cancellation_fee"
	TxTypeAdminAdjustment TxType = "admin_adjustment"
	TxTypeRefund          TxType = "refund"
)

func (t TxType) Valid() bool {
	switch t {
	case TxTypeTopup, TxTypeCreditPurchase, TxTypeSubscription,
		TxTypeCancellationFee, TxTypeAdminAdjustment, TxTypeRefund:
		return true
	}
	return false
}

// WalletTransaction is an append-only audit row. Rows are never mutated;
// the only delete path is the compensating rollback when the balance
// update that should follow the insert fails.
type WalletTransaction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	TxType        TxType    `json:"tx_type"`
	Amount        int64     `json:"amount"` // signed, minor currency units
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	Currency      string    `json:"currency"`
	Description   string    `json:"description"`
	ReferenceID   *string   `json:"reference_id,omitempty"` // external idempotency key
	CreatedAt     time.Time `json:"created_at"`
}
