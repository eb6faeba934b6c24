package repository

import (
	"context"
	"errors"
	"fmt"

	"meeting-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TierRepository interface {
	GetUserTier(ctx context.Context, userID string) (domain.Tier, error)
	GetSettings(ctx context.Context, tier domain.Tier) (*domain.TierSettings, error)
}

type tierRepo struct {
	db *pgxpool.Pool
}

func NewTierRepository(db *pgxpool.Pool) TierRepository {
	return &tierRepo{db: db}
}

func (r *tierRepo) GetUserTier(ctx context.Context, userID string) (domain.Tier, error) {
	var tier domain.Tier
	err := r.db.QueryRow(ctx,
		`SELECT tier FROM account_tiers WHERE user_id = $1`, userID,
	).Scan(&tier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Accounts without an explicit row are basic.
			return domain.TierBasic, nil
		}
		return "", fmt.Errorf("get user tier: %w", err)
	}
	return tier, nil
}

func (r *tierRepo) GetSettings(ctx context.Context, tier domain.Tier) (*domain.TierSettings, error) {
	var s domain.TierSettings
	err := r.db.QueryRow(ctx, `
		SELECT tier, can_contact_basic, can_contact_standard, can_contact_premium,
			can_contact_vip, surcharge_premium, surcharge_vip
		FROM tier_settings WHERE tier = $1`,
		tier,
	).Scan(
		&s.Tier, &s.CanContactBasic, &s.CanContactStandard, &s.CanContactPremium,
		&s.CanContactVIP, &s.SurchargePremium, &s.SurchargeVIP,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tier settings for %s: %w", tier, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get tier settings: %w", err)
	}
	return &s, nil
}
