// Package repotest provides in-memory repository fakes for usecase
// tests. They mirror the conditional-update semantics of the SQL
// implementations, including the idempotency index and the optimistic
// version check, and serialize everything on a mutex.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meeting-service/internal/domain"
	"meeting-service/internal/repository"
)

// --- wallets ---

type FakeWalletRepo struct {
	mu      sync.Mutex
	Wallets map[string]*domain.WalletBalance

	// UpdateErr makes every balance update fail, for exercising the
	// compensating-rollback path.
	UpdateErr error
	// ForceVersionMisses rejects this many updates with a version miss
	// before behaving normally.
	ForceVersionMisses int
}

func NewFakeWalletRepo() *FakeWalletRepo {
	return &FakeWalletRepo{Wallets: make(map[string]*domain.WalletBalance)}
}

func (f *FakeWalletRepo) GetOrCreate(_ context.Context, userID, currency string) (*domain.WalletBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.Wallets[userID]
	if !ok {
		w = &domain.WalletBalance{UserID: userID, Currency: currency, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		f.Wallets[userID] = w
	}
	cp := *w
	return &cp, nil
}

func (f *FakeWalletRepo) UpdateBalanceOptimistic(_ context.Context, userID string, newBalance, expectedVersion int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return false, f.UpdateErr
	}
	if f.ForceVersionMisses > 0 {
		f.ForceVersionMisses--
		return false, nil
	}
	w, ok := f.Wallets[userID]
	if !ok || w.Version != expectedVersion {
		return false, nil
	}
	w.Balance = newBalance
	w.Version++
	w.UpdatedAt = time.Now()
	return true, nil
}

func (f *FakeWalletRepo) Balance(userID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.Wallets[userID]; ok {
		return w.Balance
	}
	return 0
}

// --- transactions ---

type FakeTransactionRepo struct {
	mu   sync.Mutex
	Rows []*domain.WalletTransaction

	// DeleteErr makes the compensating rollback fail.
	DeleteErr error
}

func NewFakeTransactionRepo() *FakeTransactionRepo {
	return &FakeTransactionRepo{}
}

func (f *FakeTransactionRepo) Insert(_ context.Context, tx *domain.WalletTransaction) (*repository.InsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tx.ReferenceID != nil {
		for _, row := range f.Rows {
			if row.ReferenceID != nil && *row.ReferenceID == *tx.ReferenceID && row.TxType == tx.TxType {
				cp := *row
				return &repository.InsertResult{Created: false, Transaction: &cp}, nil
			}
		}
	}
	cp := *tx
	cp.CreatedAt = time.Now()
	f.Rows = append(f.Rows, &cp)
	out := cp
	return &repository.InsertResult{Created: true, Transaction: &out}, nil
}

func (f *FakeTransactionRepo) FindByReference(_ context.Context, referenceID string, txType domain.TxType) (*domain.WalletTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.Rows {
		if row.ReferenceID != nil && *row.ReferenceID == referenceID && row.TxType == txType {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *FakeTransactionRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	for i, row := range f.Rows {
		if row.ID == id {
			f.Rows = append(f.Rows[:i], f.Rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("wallet transaction %s: %w", id, domain.ErrNotFound)
}

func (f *FakeTransactionRepo) ListByUser(_ context.Context, userID string, _ int) ([]*domain.WalletTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.WalletTransaction
	for _, row := range f.Rows {
		if row.UserID == userID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *FakeTransactionRepo) CountByType(txType domain.TxType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.Rows {
		if row.TxType == txType {
			n++
		}
	}
	return n
}

// --- credits ---

type FakeCreditRepo struct {
	mu       sync.Mutex
	Balances map[string]*domain.CreditBalance

	// GrantErr makes every grant fail, for exercising the anchor-row
	// compensation in payment ingestion.
	GrantErr error
}

func NewFakeCreditRepo() *FakeCreditRepo {
	return &FakeCreditRepo{Balances: make(map[string]*domain.CreditBalance)}
}

func (f *FakeCreditRepo) Seed(userID string, total, used int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Balances[userID] = &domain.CreditBalance{UserID: userID, Total: total, Used: used, UpdatedAt: time.Now()}
}

func (f *FakeCreditRepo) GetOrCreate(_ context.Context, userID string) (*domain.CreditBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.Balances[userID]
	if !ok {
		c = &domain.CreditBalance{UserID: userID, UpdatedAt: time.Now()}
		f.Balances[userID] = c
	}
	cp := *c
	return &cp, nil
}

func (f *FakeCreditRepo) HoldAvailable(_ context.Context, userID string, count int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if count <= 0 {
		return false, fmt.Errorf("hold count %d: %w", count, domain.ErrInvalidInput)
	}
	c, ok := f.Balances[userID]
	if !ok || c.Total-c.Used < count {
		return false, nil
	}
	c.Used += count
	return true, nil
}

func (f *FakeCreditRepo) AdjustUsed(_ context.Context, userID string, delta int) (*domain.CreditBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.Balances[userID]
	if !ok {
		c = &domain.CreditBalance{UserID: userID}
		f.Balances[userID] = c
	}
	c.Used += delta
	if c.Used < 0 {
		c.Used = 0
	}
	cp := *c
	return &cp, nil
}

func (f *FakeCreditRepo) GrantCredits(_ context.Context, userID string, count int) (*domain.CreditBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GrantErr != nil {
		return nil, f.GrantErr
	}
	c, ok := f.Balances[userID]
	if !ok {
		c = &domain.CreditBalance{UserID: userID}
		f.Balances[userID] = c
	}
	c.Total += count
	cp := *c
	return &cp, nil
}

func (f *FakeCreditRepo) Used(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.Balances[userID]; ok {
		return c.Used
	}
	return 0
}

// --- meetings ---

type FakeMeetingRepo struct {
	mu           sync.Mutex
	Meetings     map[string]*domain.Meeting
	Participants map[string][]*domain.Participant
}

func NewFakeMeetingRepo() *FakeMeetingRepo {
	return &FakeMeetingRepo{
		Meetings:     make(map[string]*domain.Meeting),
		Participants: make(map[string][]*domain.Participant),
	}
}

func (f *FakeMeetingRepo) Create(_ context.Context, m *domain.Meeting, participants []*domain.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.Meetings[m.ID] = &cp
	for _, p := range participants {
		pc := *p
		f.Participants[m.ID] = append(f.Participants[m.ID], &pc)
	}
	return nil
}

func (f *FakeMeetingRepo) GetByID(_ context.Context, id string) (*domain.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Meetings[id]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (f *FakeMeetingRepo) ListParticipants(_ context.Context, meetingID string) ([]*domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Participant
	for _, p := range f.Participants[meetingID] {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *FakeMeetingRepo) GetParticipant(_ context.Context, meetingID, userID string) (*domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.Participants[meetingID] {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotAParticipant
}

func (f *FakeMeetingRepo) RecordResponse(_ context.Context, meetingID, userID string, resp domain.ParticipantResponse, at time.Time) (*repository.ResponseOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.Meetings[meetingID]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, domain.ErrNotFound)
	}
	if m.Status != domain.MeetingStatusPending {
		return nil, fmt.Errorf("respond on %s meeting: %w", m.Status, domain.ErrInvalidStateTransition)
	}

	var target *domain.Participant
	for _, p := range f.Participants[meetingID] {
		if p.UserID == userID {
			target = p
			break
		}
	}
	if target == nil {
		return nil, domain.ErrNotAParticipant
	}
	target.Response = resp
	target.RespondedAt = &at

	outcome := &repository.ResponseOutcome{}
	if resp == domain.ResponseDeclined {
		reason := "declined by participant"
		m.Status = domain.MeetingStatusCanceled
		m.CanceledBy = &userID
		m.CanceledAt = &at
		m.CancellationReason = &reason
		outcome.Canceled = true
	} else {
		all := true
		for _, p := range f.Participants[meetingID] {
			if p.Response != domain.ResponseAccepted {
				all = false
				break
			}
		}
		if all {
			m.Status = domain.MeetingStatusConfirmed
			outcome.Confirmed = true
		}
	}
	cp := *m
	outcome.Meeting = &cp
	return outcome, nil
}

func (f *FakeMeetingRepo) MarkCanceled(_ context.Context, meetingID, canceledBy, reason string, at time.Time, fromStatuses []domain.MeetingStatus) (*domain.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Meetings[meetingID]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, domain.ErrNotFound)
	}
	allowed := false
	for _, s := range fromStatuses {
		if m.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("cancel meeting %s: %w", meetingID, domain.ErrInvalidStateTransition)
	}
	m.Status = domain.MeetingStatusCanceled
	m.CanceledBy = &canceledBy
	m.CanceledAt = &at
	m.CancellationReason = &reason
	cp := *m
	return &cp, nil
}

func (f *FakeMeetingRepo) MarkCompleted(_ context.Context, meetingID string, now time.Time) (*domain.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Meetings[meetingID]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, domain.ErrNotFound)
	}
	if m.Status != domain.MeetingStatusConfirmed || m.ScheduledAt.After(now) {
		return nil, fmt.Errorf("complete meeting %s: %w", meetingID, domain.ErrInvalidStateTransition)
	}
	m.Status = domain.MeetingStatusCompleted
	cp := *m
	return &cp, nil
}

func (f *FakeMeetingRepo) UpdateCancellationFee(_ context.Context, meetingID string, fee int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Meetings[meetingID]
	if !ok {
		return fmt.Errorf("meeting %s: %w", meetingID, domain.ErrNotFound)
	}
	m.CancellationFee = fee
	return nil
}

// --- availability ---

type fakeSlot struct {
	id       string
	hostID   string
	startsAt time.Time
	booked   bool
}

type FakeAvailabilityRepo struct {
	mu    sync.Mutex
	slots []*fakeSlot
	next  int
}

func NewFakeAvailabilityRepo() *FakeAvailabilityRepo {
	return &FakeAvailabilityRepo{}
}

func (f *FakeAvailabilityRepo) AddSlot(hostID string, startsAt time.Time) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := fmt.Sprintf("slot-%d", f.next)
	f.slots = append(f.slots, &fakeSlot{id: id, hostID: hostID, startsAt: startsAt})
	return id
}

func (f *FakeAvailabilityRepo) ClaimSlot(_ context.Context, hostID string, startsAt time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.slots {
		if s.hostID == hostID && s.startsAt.Equal(startsAt) && !s.booked {
			s.booked = true
			return s.id, nil
		}
	}
	return "", domain.ErrSlotUnavailable
}

func (f *FakeAvailabilityRepo) ReleaseSlot(_ context.Context, slotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.slots {
		if s.id == slotID {
			s.booked = false
			return nil
		}
	}
	return nil
}

func (f *FakeAvailabilityRepo) IsBooked(slotID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.slots {
		if s.id == slotID {
			return s.booked
		}
	}
	return false
}

// --- tiers ---

type FakeTierRepo struct {
	mu       sync.Mutex
	Tiers    map[string]domain.Tier
	Settings map[domain.Tier]*domain.TierSettings
}

func NewFakeTierRepo() *FakeTierRepo {
	return &FakeTierRepo{
		Tiers:    make(map[string]domain.Tier),
		Settings: make(map[domain.Tier]*domain.TierSettings),
	}
}

func (f *FakeTierRepo) GetUserTier(_ context.Context, userID string) (domain.Tier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.Tiers[userID]; ok {
		return t, nil
	}
	return domain.TierBasic, nil
}

func (f *FakeTierRepo) GetSettings(_ context.Context, tier domain.Tier) (*domain.TierSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.Settings[tier]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, fmt.Errorf("tier settings for %s: %w", tier, domain.ErrNotFound)
}

var (
	_ repository.WalletRepository       = (*FakeWalletRepo)(nil)
	_ repository.TransactionRepository  = (*FakeTransactionRepo)(nil)
	_ repository.CreditRepository       = (*FakeCreditRepo)(nil)
	_ repository.MeetingRepository      = (*FakeMeetingRepo)(nil)
	_ repository.AvailabilityRepository = (*FakeAvailabilityRepo)(nil)
	_ repository.TierRepository         = (*FakeTierRepo)(nil)
)
