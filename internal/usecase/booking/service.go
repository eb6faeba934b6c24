package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"meeting-service/internal/config"
	"meeting-service/internal/dispatch"
	"meeting-service/internal/domain"
	"meeting-service/internal/policy"
	"meeting-service/internal/repository"
	"meeting-service/internal/usecase/ledger"
	"meeting-service/pkg/id"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const tierSettingsCacheTTL = 5 * time.Minute

type Service struct {
	meetings   repository.MeetingRepository
	slots      repository.AvailabilityRepository
	tiers      repository.TierRepository
	ledger     *ledger.Service
	dispatcher dispatch.Dispatcher
	rdb        *redis.Client // nil disables the tier settings cache
	ids        *id.Generator
	cfg        config.BookingConfig
	logger     *zap.Logger
}

func New(
	meetings repository.MeetingRepository,
	slots repository.AvailabilityRepository,
	tiers repository.TierRepository,
	ledgerSvc *ledger.Service,
	dispatcher dispatch.Dispatcher,
	rdb *redis.Client,
	cfg config.BookingConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		meetings:   meetings,
		slots:      slots,
		tiers:      tiers,
		ledger:     ledgerSvc,
		dispatcher: dispatcher,
		rdb:        rdb,
		ids:        id.NewGenerator(),
		cfg:        cfg,
		logger:     logger,
	}
}

// CreateMeeting books an open slot of the target for the requester.
// Order matters: the tier gate rejects before anything is touched, the
// slot claim and credit hold are both compensated if a later step fails.
func (s *Service) CreateMeeting(ctx context.Context, cmd domain.CreateMeetingCommand) (*domain.Meeting, error) {
	scheduledAt, err := parseSchedule(cmd.Date, cmd.Time)
	if err != nil {
		return nil, err
	}
	if cmd.RequesterID == "" || cmd.TargetID == "" {
		return nil, fmt.Errorf("requester and target are required: %w", domain.ErrInvalidInput)
	}
	if cmd.RequesterID == cmd.TargetID {
		return nil, fmt.Errorf("cannot book a meeting with yourself: %w", domain.ErrInvalidInput)
	}
	meetingType := cmd.Type
	if meetingType == "" {
		meetingType = domain.MeetingTypeOneOnOne
	}
	if !meetingType.Valid() {
		return nil, fmt.Errorf("unknown meeting type %q: %w", cmd.Type, domain.ErrInvalidInput)
	}

	requesterTier, err := s.tiers.GetUserTier(ctx, cmd.RequesterID)
	if err != nil {
		return nil, err
	}
	targetTier, err := s.tiers.GetUserTier(ctx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	settings, err := s.tierSettings(ctx, requesterTier)
	if err != nil {
		return nil, err
	}

	decision := policy.CanContact(settings, targetTier)
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", domain.ErrPermissionDenied, decision.Reason)
	}

	creditCost := s.cfg.CreditCost
	if decision.Surcharge {
		creditCost = s.cfg.SurchargeCreditCost
	}

	slotID, err := s.slots.ClaimSlot(ctx, cmd.TargetID, scheduledAt)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.HoldCredits(ctx, cmd.RequesterID, creditCost); err != nil {
		s.releaseSlot(ctx, slotID)
		return nil, err
	}

	now := time.Now()
	m := &domain.Meeting{
		ID:              s.ids.New(),
		Type:            meetingType,
		Status:          domain.MeetingStatusPending,
		SlotID:          slotID,
		ScheduledAt:     scheduledAt,
		LocationPref:    cmd.LocationPref,
		CancellationFee: s.cfg.DefaultCancellationFee,
		CreditsHeld:     creditCost,
		ChargeStatus:    domain.ChargeStatusPending,
	}
	participants := []*domain.Participant{
		{MeetingID: m.ID, UserID: cmd.TargetID, Role: domain.RoleHost, Response: domain.ResponseRequested},
		// The requester implicitly accepts by requesting.
		{MeetingID: m.ID, UserID: cmd.RequesterID, Role: domain.RoleGuest, Response: domain.ResponseAccepted, RespondedAt: &now},
	}

	if err := s.meetings.Create(ctx, m, participants); err != nil {
		s.releaseSlot(ctx, slotID)
		if _, rerr := s.ledger.ReleaseCredits(ctx, cmd.RequesterID, creditCost); rerr != nil {
			s.logger.Error("credit release after failed create",
				zap.String("user_id", cmd.RequesterID),
				zap.Int("credits", creditCost),
				zap.Error(rerr))
		}
		return nil, err
	}

	s.logger.Info("meeting created",
		zap.String("meeting_id", m.ID),
		zap.String("requester_id", cmd.RequesterID),
		zap.String("target_id", cmd.TargetID),
		zap.Int("credits_held", creditCost),
		zap.Bool("surcharge", decision.Surcharge))
	return m, nil
}

// Respond records an accept or decline while the meeting is pending. The
// repository serializes on the meeting row, so of two racing accepts only
// one returns Confirmed and only that caller dispatches side effects.
func (s *Service) Respond(ctx context.Context, cmd domain.RespondCommand) (*domain.Meeting, error) {
	resp := domain.ResponseAccepted
	if !cmd.Accept {
		resp = domain.ResponseDeclined
	}

	outcome, err := s.meetings.RecordResponse(ctx, cmd.MeetingID, cmd.UserID, resp, time.Now())
	if err != nil {
		return nil, err
	}
	m := outcome.Meeting

	switch {
	case outcome.Confirmed:
		s.dispatchEvent(ctx, m, "", "", true)
	case outcome.Canceled:
		// Pre-confirmation decline: release the guest's hold and the slot.
		s.settlePendingCancellation(ctx, m)
		s.dispatchEvent(ctx, m, cmd.UserID, "declined by participant", false)
	}
	return m, nil
}

// CancellationPreview computes what a cancellation would cost right now.
// This is the server-side source of the warning the client must show.
func (s *Service) CancellationPreview(ctx context.Context, meetingID, userID string) (policy.CancellationDecision, string, error) {
	m, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return policy.CancellationDecision{}, "", err
	}
	if _, err := s.meetings.GetParticipant(ctx, meetingID, userID); err != nil {
		return policy.CancellationDecision{}, "", err
	}

	d, err := policy.DecideCancellation(m)
	if err != nil {
		return policy.CancellationDecision{}, "", err
	}
	return d, policy.WarningText(d, s.cfg.Currency, s.cfg.CurrencyScale), nil
}

type CancelResult struct {
	Meeting      *domain.Meeting `json:"meeting"`
	FeeApplied   int64           `json:"fee_applied"`
	FeeCollected int64           `json:"fee_collected"` // after the zero floor on the wallet
	RefundCredit bool            `json:"refund_credit"`
}

// Cancel runs the two-phase cancellation protocol. Whenever a fee would
// be charged or the meeting is confirmed, the first call without
// cmd.Confirmed returns ConfirmationRequiredError carrying the fee; no
// state is held between the two calls.
func (s *Service) Cancel(ctx context.Context, cmd domain.CancelMeetingCommand) (*CancelResult, error) {
	m, err := s.meetings.GetByID(ctx, cmd.MeetingID)
	if err != nil {
		return nil, err
	}
	if _, err := s.meetings.GetParticipant(ctx, cmd.MeetingID, cmd.UserID); err != nil {
		return nil, err
	}

	d, err := policy.DecideCancellation(m)
	if err != nil {
		return nil, err
	}
	if d.RequiresConfirmation && !cmd.Confirmed {
		return nil, &domain.ConfirmationRequiredError{Fee: d.Fee, RefundCredit: d.RefundCredit}
	}

	reason := cmd.Reason
	if reason == "" {
		reason = "canceled by participant"
	}

	// Compare-and-set on the status: a concurrent cancel or response that
	// got there first leaves us with ErrInvalidStateTransition, and the
	// fee/refund side effects below run at most once per meeting.
	updated, err := s.meetings.MarkCanceled(ctx, cmd.MeetingID, cmd.UserID, reason, time.Now(),
		[]domain.MeetingStatus{domain.MeetingStatusPending, domain.MeetingStatusConfirmed})
	if err != nil {
		return nil, err
	}

	result := &CancelResult{Meeting: updated, RefundCredit: d.RefundCredit}

	if d.Fee > 0 {
		// The reference id pins the fee to the meeting, so a retried
		// cancel request can never double-charge.
		ref := fmt.Sprintf("meeting:%s:cancellation", updated.ID)
		res, err := s.ledger.ApplyWalletDelta(ctx, domain.WalletDeltaCommand{
			UserID:      cmd.UserID,
			Amount:      -d.Fee,
			TxType:      domain.TxTypeCancellationFee,
			Description: fmt.Sprintf("cancellation fee for meeting %s", updated.ID),
			ReferenceID: &ref,
		})
		if err != nil {
			// The meeting is already canceled; the fee failure is
			// surfaced, never hidden behind a success.
			return nil, fmt.Errorf("meeting canceled but fee charge failed: %w", err)
		}
		result.FeeApplied = d.Fee
		result.FeeCollected = -res.Collected
	}

	if d.RefundCredit {
		s.settlePendingCancellation(ctx, updated)
	} else {
		s.releaseSlot(ctx, updated.SlotID)
	}

	s.dispatchEvent(ctx, updated, cmd.UserID, reason, false)

	s.logger.Info("meeting canceled",
		zap.String("meeting_id", updated.ID),
		zap.String("canceled_by", cmd.UserID),
		zap.Int64("fee_applied", result.FeeApplied),
		zap.Bool("refund_credit", d.RefundCredit))
	return result, nil
}

// Complete flips a confirmed meeting whose time has passed. Invoked from
// the admin surface; the post-meeting flow that triggers it is external.
func (s *Service) Complete(ctx context.Context, meetingID string) (*domain.Meeting, error) {
	return s.meetings.MarkCompleted(ctx, meetingID, time.Now())
}

// SetCancellationFee is the admin per-meeting fee override.
func (s *Service) SetCancellationFee(ctx context.Context, meetingID string, fee int64) error {
	if fee < 0 {
		return fmt.Errorf("cancellation fee must not be negative: %w", domain.ErrInvalidInput)
	}
	return s.meetings.UpdateCancellationFee(ctx, meetingID, fee)
}

// GetMeeting returns the meeting with participants, for participants only.
func (s *Service) GetMeeting(ctx context.Context, meetingID, userID string) (*domain.Meeting, []*domain.Participant, error) {
	m, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.meetings.GetParticipant(ctx, meetingID, userID); err != nil {
		return nil, nil, err
	}
	participants, err := s.meetings.ListParticipants(ctx, meetingID)
	if err != nil {
		return nil, nil, err
	}
	return m, participants, nil
}

// settlePendingCancellation releases the guest's credit hold and the
// booked slot after a pre-confirmation cancellation or decline.
func (s *Service) settlePendingCancellation(ctx context.Context, m *domain.Meeting) {
	guestID := ""
	participants, err := s.meetings.ListParticipants(ctx, m.ID)
	if err != nil {
		s.logger.Error("participant lookup for settlement failed",
			zap.String("meeting_id", m.ID), zap.Error(err))
	} else {
		for _, p := range participants {
			if p.Role == domain.RoleGuest {
				guestID = p.UserID
				break
			}
		}
	}

	if guestID != "" && m.CreditsHeld > 0 {
		if _, err := s.ledger.ReleaseCredits(ctx, guestID, m.CreditsHeld); err != nil {
			s.logger.Error("credit release failed",
				zap.String("meeting_id", m.ID),
				zap.String("user_id", guestID),
				zap.Int("credits", m.CreditsHeld),
				zap.Error(err))
		}
	}
	s.releaseSlot(ctx, m.SlotID)
}

func (s *Service) releaseSlot(ctx context.Context, slotID string) {
	if slotID == "" {
		return
	}
	if err := s.slots.ReleaseSlot(ctx, slotID); err != nil {
		s.logger.Error("slot release failed", zap.String("slot_id", slotID), zap.Error(err))
	}
}

// dispatchEvent publishes the confirmed/canceled side effect. Best
// effort: failures are logged and never change the transition's result.
func (s *Service) dispatchEvent(ctx context.Context, m *domain.Meeting, canceledBy, reason string, confirmed bool) {
	ev := &dispatch.MeetingEvent{
		MeetingID:   m.ID,
		ScheduledAt: m.ScheduledAt,
		CanceledBy:  canceledBy,
		Reason:      reason,
	}
	if participants, err := s.meetings.ListParticipants(ctx, m.ID); err == nil {
		for _, p := range participants {
			switch p.Role {
			case domain.RoleHost:
				ev.HostID = p.UserID
			case domain.RoleGuest:
				ev.GuestID = p.UserID
			}
		}
	}

	var err error
	if confirmed {
		err = s.dispatcher.MeetingConfirmed(ctx, ev)
	} else {
		err = s.dispatcher.MeetingCanceled(ctx, ev)
	}
	if err != nil {
		s.logger.Warn("meeting event dispatch failed",
			zap.String("meeting_id", m.ID),
			zap.Bool("confirmed", confirmed),
			zap.Error(err))
	}
}

// tierSettings reads the contact matrix through a short redis cache.
func (s *Service) tierSettings(ctx context.Context, tier domain.Tier) (*domain.TierSettings, error) {
	cacheKey := fmt.Sprintf("tier:settings:%s", tier)

	if s.rdb != nil {
		if val, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var settings domain.TierSettings
			if jsonErr := json.Unmarshal([]byte(val), &settings); jsonErr == nil {
				return &settings, nil
			}
		}
	}

	settings, err := s.tiers.GetSettings(ctx, tier)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(settings); err == nil {
			_ = s.rdb.Set(ctx, cacheKey, data, tierSettingsCacheTTL).Err()
		}
	}
	return settings, nil
}

func parseSchedule(date, timeOfDay string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04", fmt.Sprintf("%s %s", date, timeOfDay))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: %w", date, timeOfDay, domain.ErrInvalidInput)
	}
	return t.UTC(), nil
}
