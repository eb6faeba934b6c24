package repository

import (
	"context"
	"fmt"

	"meeting-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type WalletRepository interface {
	GetOrCreate(ctx context.Context, userID, currency string) (*domain.WalletBalance, error)

	// UpdateBalanceOptimistic writes the new balance only if the row
	// still carries expectedVersion. Returns false on a version miss so
	// the caller can re-read and retry.
	UpdateBalanceOptimistic(ctx context.Context, userID string, newBalance, expectedVersion int64) (bool, error)
}

type walletRepo struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) WalletRepository {
	return &walletRepo{db: db}
}

func (r *walletRepo) GetOrCreate(ctx context.Context, userID, currency string) (*domain.WalletBalance, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO wallet_balances (user_id, balance, currency, version, created_at, updated_at)
		VALUES ($1, 0, $2, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING`,
		userID, currency,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure wallet exists: %w", err)
	}

	var w domain.WalletBalance
	err = r.db.QueryRow(ctx, `
		SELECT user_id, balance, currency, version, created_at, updated_at
		FROM wallet_balances WHERE user_id = $1`,
		userID,
	).Scan(&w.UserID, &w.Balance, &w.Currency, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return &w, nil
}

func (r *walletRepo) UpdateBalanceOptimistic(ctx context.Context, userID string, newBalance, expectedVersion int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE wallet_balances
		SET balance = $1, version = version + 1, updated_at = NOW()
		WHERE user_id = $2 AND version = $3`,
		newBalance, userID, expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("update wallet balance: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
