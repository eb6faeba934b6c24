package domain

// Typed command structs, one per mutating operation. The closed set keeps
// invalid field combinations out of the storage layer.

type CreateMeetingCommand struct {
	RequesterID  string      `json:"requester_id"`
	TargetID     string      `json:"target_id"`
	Date         string      `json:"date"` // YYYY-MM-DD
	Time         string      `json:"time"` // HH:MM, 24h
	Type         MeetingType `json:"type"`
	LocationPref string      `json:"location_pref,omitempty"`
}

type RespondCommand struct {
	MeetingID string `json:"meeting_id"`
	UserID    string `json:"user_id"`
	Accept    bool   `json:"accept"`
}

type CancelMeetingCommand struct {
	MeetingID string `json:"meeting_id"`
	UserID    string `json:"user_id"`
	Reason    string `json:"reason,omitempty"`
	Confirmed bool   `json:"confirmed"`
}

type WalletDeltaCommand struct {
	UserID      string  `json:"user_id"`
	Amount      int64   `json:"amount"` // signed, minor currency units
	TxType      TxType  `json:"tx_type"`
	Description string  `json:"description"`
	ReferenceID *string `json:"reference_id,omitempty"`
}

type PaymentEventCommand struct {
	ReferenceID string `json:"reference_id"`
	EventType   TxType `json:"event_type"` // topup | credit_purchase | subscription
	UserID      string `json:"user_id"`
	Amount      int64  `json:"amount"`  // minor currency units for topups
	Credits     int    `json:"credits"` // granted credits for purchases/subscriptions
}

type AdjustWalletCommand struct {
	AdminID     string  `json:"admin_id"`
	UserID      string  `json:"user_id"`
	Delta       int64   `json:"delta"`
	Reason      string  `json:"reason"`
	ReferenceID *string `json:"reference_id,omitempty"`
}
