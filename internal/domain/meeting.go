package domain

import (
	"time"
)

type MeetingType string

const (
	MeetingTypeOneOnOne MeetingType = "one_on_one"
	MeetingTypeGroup    MeetingType = "group"
)

func (t MeetingType) Valid() bool {
	return t == MeetingTypeOneOnOne || t == MeetingTypeGroup
}

type MeetingStatus string

const (
	MeetingStatusPending   MeetingStatus = "pending"
	MeetingStatusConfirmed MeetingStatus = "confirmed"
	MeetingStatusCanceled  MeetingStatus = "canceled"
	MeetingStatusCompleted MeetingStatus = "completed"
)

type ChargeStatus string

const (
	ChargeStatusPending   ChargeStatus = "pending"
	ChargeStatusFinalized ChargeStatus = "finalized"
)

type Meeting struct {
	ID                 string        `json:"id"`
	Type               MeetingType   `json:"type"`
	Status             MeetingStatus `json:"status"`
	SlotID             string        `json:"slot_id"`
	ScheduledAt        time.Time     `json:"scheduled_at"`
	LocationPref       string        `json:"location_pref,omitempty"`
	Fee                int64         `json:"fee"`              // minor currency units charged to book
	CancellationFee    int64         `json:"cancellation_fee"` // minor currency units, admin-adjustable
	CreditsHeld        int           `json:"credits_held"`
	ChargeStatus       ChargeStatus  `json:"charge_status"`
	CanceledBy         *string       `json:"canceled_by,omitempty"`
	CanceledAt         *time.Time    `json:"canceled_at,omitempty"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// IsTerminal reports whether the meeting has reached a state that can
// never transition again. Terminal rows are kept for audit.
func (m *Meeting) IsTerminal() bool {
	return m.Status == MeetingStatusCanceled || m.Status == MeetingStatusCompleted
}

type ParticipantRole string

const (
	RoleHost  ParticipantRole = "host"
	RoleGuest ParticipantRole = "guest"
)

type ParticipantResponse string

const (
	ResponseRequested ParticipantResponse = "requested"
	ResponseAccepted  ParticipantResponse = "accepted"
	ResponseDeclined  ParticipantResponse = "declined"
)

type Participant struct {
	MeetingID   string              `json:"meeting_id"`
	UserID      string              `json:"user_id"`
	Role        ParticipantRole     `json:"role"`
	Response    ParticipantResponse `json:"response"`
	RespondedAt *time.Time          `json:"responded_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}
