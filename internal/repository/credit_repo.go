package repository

import (
	"context"
	"fmt"

	"meeting-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CreditRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*domain.CreditBalance, error)

	// HoldAvailable consumes `count` credits only if that many are
	// available. The single conditional statement is what keeps two
	// concurrent bookings from both spending the last credit.
	HoldAvailable(ctx context.Context, userID string, count int) (bool, error)

	// AdjustUsed shifts `used` by delta with a floor of zero. Used for
	// releases (negative delta); holds go through HoldAvailable.
	AdjustUsed(ctx context.Context, userID string, delta int) (*domain.CreditBalance, error)

	// GrantCredits raises the lifetime total (credit purchase or
	// subscription grant).
	GrantCredits(ctx context.Context, userID string, count int) (*domain.CreditBalance, error)
}

type creditRepo struct {
	db *pgxpool.Pool
}

func NewCreditRepository(db *pgxpool.Pool) CreditRepository {
	return &creditRepo{db: db}
}

func (r *creditRepo) GetOrCreate(ctx context.Context, userID string) (*domain.CreditBalance, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO credit_balances (user_id, total, used, rollover, updated_at)
		VALUES ($1, 0, 0, 0, NOW())
		ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure credit balance exists: %w", err)
	}

	var c domain.CreditBalance
	err = r.db.QueryRow(ctx, `
		SELECT user_id, total, used, rollover, updated_at
		FROM credit_balances WHERE user_id = $1`,
		userID,
	).Scan(&c.UserID, &c.Total, &c.Used, &c.Rollover, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get credit balance: %w", err)
	}
	return &c, nil
}

func (r *creditRepo) HoldAvailable(ctx context.Context, userID string, count int) (bool, error) {
	if count <= 0 {
		return false, fmt.Errorf("hold count %d: %w", count, domain.ErrInvalidInput)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE credit_balances
		SET used = used + $1, updated_at = NOW()
		WHERE user_id = $2 AND total - used >= $1`,
		count, userID,
	)
	if err != nil {
		return false, fmt.Errorf("hold credits: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *creditRepo) AdjustUsed(ctx context.Context, userID string, delta int) (*domain.CreditBalance, error) {
	var c domain.CreditBalance
	err := r.db.QueryRow(ctx, `
		UPDATE credit_balances
		SET used = GREATEST(0, used + $1), updated_at = NOW()
		WHERE user_id = $2
		RETURNING user_id, total, used, rollover, updated_at`,
		delta, userID,
	).Scan(&c.UserID, &c.Total, &c.Used, &c.Rollover, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("adjust used credits: %w", err)
	}
	return &c, nil
}

func (r *creditRepo) GrantCredits(ctx context.Context, userID string, count int) (*domain.CreditBalance, error) {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	var c domain.CreditBalance
	err := r.db.QueryRow(ctx, `
		UPDATE credit_balances
		SET total = total + $1, updated_at = NOW()
		WHERE user_id = $2
		RETURNING user_id, total, used, rollover, updated_at`,
		count, userID,
	).Scan(&c.UserID, &c.Total, &c.Used, &c.Rollover, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("grant credits: %w", err)
	}
	return &c, nil
}
