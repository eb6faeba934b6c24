package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meeting-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResponseOutcome reports what a recorded participant response did to the
// meeting. At most one of Confirmed/Canceled is set, and because the
// meeting row is locked for the duration of the write, at most one caller
// ever observes Confirmed=true for a given meeting.
type ResponseOutcome struct {
	Meeting   *domain.Meeting
	Confirmed bool
	Canceled  bool
}

type MeetingRepository interface {
	Create(ctx context.Context, m *domain.Meeting, participants []*domain.Participant) error
	GetByID(ctx context.Context, id string) (*domain.Meeting, error)
	ListParticipants(ctx context.Context, meetingID string) ([]*domain.Participant, error)
	GetParticipant(ctx context.Context, meetingID, userID string) (*domain.Participant, error)

	// RecordResponse serializes on the meeting row: lock, write the
	// participant response, then flip the meeting to confirmed (all
	// accepted) or canceled (any decline) in the same transaction.
	RecordResponse(ctx context.Context, meetingID, userID string, resp domain.ParticipantResponse, at time.Time) (*ResponseOutcome, error)

	// MarkCanceled is a compare-and-set: it only succeeds while the
	// current status is one of fromStatuses, so racing cancels resolve
	// to exactly one winner.
	MarkCanceled(ctx context.Context, meetingID, canceledBy, reason string, at time.Time, fromStatuses []domain.MeetingStatus) (*domain.Meeting, error)

	// MarkCompleted flips confirmed meetings whose scheduled time has
	// passed to completed.
	MarkCompleted(ctx context.Context, meetingID string, now time.Time) (*domain.Meeting, error)

	// UpdateCancellationFee sets the per-meeting fee (admin adjustment).
	UpdateCancellationFee(ctx context.Context, meetingID string, fee int64) error
}

type meetingRepo struct {
	db *pgxpool.Pool
}

func NewMeetingRepository(db *pgxpool.Pool) MeetingRepository {
	return &meetingRepo{db: db}
}

const meetingColumns = `id, type, status, slot_id, scheduled_at, location_pref, fee,
	cancellation_fee, credits_held, charge_status, canceled_by, canceled_at,
	cancellation_reason, created_at, updated_at`

func scanMeeting(row pgx.Row) (*domain.Meeting, error) {
	var m domain.Meeting
	err := row.Scan(
		&m.ID, &m.Type, &m.Status, &m.SlotID, &m.ScheduledAt, &m.LocationPref,
		&m.Fee, &m.CancellationFee, &m.CreditsHeld, &m.ChargeStatus,
		&m.CanceledBy, &m.CanceledAt, &m.CancellationReason,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *meetingRepo) Create(ctx context.Context, m *domain.Meeting, participants []*domain.Participant) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create meeting: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO meetings (
			id, type, status, slot_id, scheduled_at, location_pref, fee,
			cancellation_fee, credits_held, charge_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`,
		m.ID, m.Type, m.Status, m.SlotID, m.ScheduledAt, m.LocationPref,
		m.Fee, m.CancellationFee, m.CreditsHeld, m.ChargeStatus,
	)
	if err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}

	for _, p := range participants {
		_, err = tx.Exec(ctx, `
			INSERT INTO meeting_participants (meeting_id, user_id, role, response, responded_at, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())`,
			m.ID, p.UserID, p.Role, p.Response, p.RespondedAt,
		)
		if err != nil {
			return fmt.Errorf("insert participant %s: %w", p.UserID, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *meetingRepo) GetByID(ctx context.Context, id string) (*domain.Meeting, error) {
	m, err := scanMeeting(r.db.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return m, nil
}

func (r *meetingRepo) ListParticipants(ctx context.Context, meetingID string) ([]*domain.Participant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT meeting_id, user_id, role, response, responded_at, created_at
		FROM meeting_participants WHERE meeting_id = $1 ORDER BY role`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []*domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.MeetingID, &p.UserID, &p.Role, &p.Response, &p.RespondedAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *meetingRepo) GetParticipant(ctx context.Context, meetingID, userID string) (*domain.Participant, error) {
	var p domain.Participant
	err := r.db.QueryRow(ctx, `
		SELECT meeting_id, user_id, role, response, responded_at, created_at
		FROM meeting_participants WHERE meeting_id = $1 AND user_id = $2`,
		meetingID, userID,
	).Scan(&p.MeetingID, &p.UserID, &p.Role, &p.Response, &p.RespondedAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotAParticipant
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return &p, nil
}

func (r *meetingRepo) RecordResponse(ctx context.Context, meetingID, userID string, resp domain.ParticipantResponse, at time.Time) (*ResponseOutcome, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin record response: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row lock: concurrent responders for the same meeting queue here.
	m, err := scanMeeting(tx.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1 FOR UPDATE`, meetingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("meeting %s: %w", meetingID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("lock meeting: %w", err)
	}

	if m.Status != domain.MeetingStatusPending {
		return nil, fmt.Errorf("respond on %s meeting: %w", m.Status, domain.ErrInvalidStateTransition)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE meeting_participants SET response = $1, responded_at = $2
		WHERE meeting_id = $3 AND user_id = $4`,
		resp, at, meetingID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update participant response: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrNotAParticipant
	}

	outcome := &ResponseOutcome{}

	if resp == domain.ResponseDeclined {
		// A decline is modeled as a pre-confirmation cancellation.
		reason := "declined by participant"
		m, err = scanMeeting(tx.QueryRow(ctx, `
			UPDATE meetings
			SET status = $1, canceled_by = $2, canceled_at = $3, cancellation_reason = $4, updated_at = NOW()
			WHERE id = $5
			RETURNING `+meetingColumns,
			domain.MeetingStatusCanceled, userID, at, reason, meetingID,
		))
		if err != nil {
			return nil, fmt.Errorf("cancel declined meeting: %w", err)
		}
		outcome.Canceled = true
	} else {
		var remaining int
		err = tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM meeting_participants
			WHERE meeting_id = $1 AND response <> $2`,
			meetingID, domain.ResponseAccepted,
		).Scan(&remaining)
		if err != nil {
			return nil, fmt.Errorf("count outstanding responses: %w", err)
		}

		if remaining == 0 {
			m, err = scanMeeting(tx.QueryRow(ctx, `
				UPDATE meetings SET status = $1, updated_at = NOW()
				WHERE id = $2
				RETURNING `+meetingColumns,
				domain.MeetingStatusConfirmed, meetingID,
			))
			if err != nil {
				return nil, fmt.Errorf("confirm meeting: %w", err)
			}
			outcome.Confirmed = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit record response: %w", err)
	}
	outcome.Meeting = m
	return outcome, nil
}

func (r *meetingRepo) MarkCanceled(ctx context.Context, meetingID, canceledBy, reason string, at time.Time, fromStatuses []domain.MeetingStatus) (*domain.Meeting, error) {
	statuses := make([]string, 0, len(fromStatuses))
	for _, s := range fromStatuses {
		statuses = append(statuses, string(s))
	}

	m, err := scanMeeting(r.db.QueryRow(ctx, `
		UPDATE meetings
		SET status = $1, canceled_by = $2, canceled_at = $3, cancellation_reason = $4, updated_at = NOW()
		WHERE id = $5 AND status = ANY($6)
		RETURNING `+meetingColumns,
		domain.MeetingStatusCanceled, canceledBy, at, reason, meetingID, statuses,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cancel meeting %s: %w", meetingID, domain.ErrInvalidStateTransition)
		}
		return nil, fmt.Errorf("mark canceled: %w", err)
	}
	return m, nil
}

func (r *meetingRepo) MarkCompleted(ctx context.Context, meetingID string, now time.Time) (*domain.Meeting, error) {
	m, err := scanMeeting(r.db.QueryRow(ctx, `
		UPDATE meetings SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND scheduled_at <= $4
		RETURNING `+meetingColumns,
		domain.MeetingStatusCompleted, meetingID, domain.MeetingStatusConfirmed, now,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("complete meeting %s: %w", meetingID, domain.ErrInvalidStateTransition)
		}
		return nil, fmt.Errorf("mark completed: %w", err)
	}
	return m, nil
}

func (r *meetingRepo) UpdateCancellationFee(ctx context.Context, meetingID string, fee int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE meetings SET cancellation_fee = $1, updated_at = NOW() WHERE id = $2`,
		fee, meetingID,
	)
	if err != nil {
		return fmt.Errorf("update cancellation fee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("meeting %s: %w", meetingID, domain.ErrNotFound)
	}
	return nil
}
