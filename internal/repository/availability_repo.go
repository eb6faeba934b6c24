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

type AvailabilityRepository interface {
	// ClaimSlot books the host's open slot for the given start time.
	// The conditional update makes concurrent claims on the same slot
	// resolve to one winner; losers get ErrSlotUnavailable.
	ClaimSlot(ctx context.Context, hostID string, startsAt time.Time) (string, error)
	ReleaseSlot(ctx context.Context, slotID string) error
}

type availabilityRepo struct {
	db *pgxpool.Pool
}

func NewAvailabilityRepository(db *pgxpool.Pool) AvailabilityRepository {
	return &availabilityRepo{db: db}
}

func (r *availabilityRepo) ClaimSlot(ctx context.Context, hostID string, startsAt time.Time) (string, error) {
	var slotID string
	err := r.db.QueryRow(ctx, `
		UPDATE availability_slots
		SET is_booked = TRUE, updated_at = NOW()
		WHERE id = (
			SELECT id FROM availability_slots
			WHERE host_id = $1 AND starts_at = $2 AND is_booked = FALSE
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`,
		hostID, startsAt,
	).Scan(&slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrSlotUnavailable
		}
		return "", fmt.Errorf("claim slot: %w", err)
	}
	return slotID, nil
}

func (r *availabilityRepo) ReleaseSlot(ctx context.Context, slotID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE availability_slots SET is_booked = FALSE, updated_at = NOW() WHERE id = $1`,
		slotID,
	)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	return nil
}
