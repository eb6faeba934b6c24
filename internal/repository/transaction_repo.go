package repository

import (
	"context"
	"errors"
	"fmt"

	"meeting-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// InsertResult models insert-or-get: the duplicate-key path is a
// first-class success branch carrying the row that already exists.
type InsertResult struct {
	Created     bool
	Transaction *domain.WalletTransaction
}

type TransactionRepository interface {
	Insert(ctx context.Context, tx *domain.WalletTransaction) (*InsertResult, error)

	// FindByReference returns (nil, nil) when no row matches.
	FindByReference(ctx context.Context, referenceID string, txType domain.TxType) (*domain.WalletTransaction, error)

	// Delete exists only for the compensating rollback of a transaction
	// row whose balance update failed. It is not a general-purpose API.
	Delete(ctx context.Context, id string) error

	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.WalletTransaction, error)
}

type transactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) TransactionRepository {
	return &transactionRepo{db: db}
}

const transactionColumns = `id, user_id, tx_type, amount, balance_before, balance_after,
	currency, description, reference_id, created_at`

func scanTransaction(row pgx.Row) (*domain.WalletTransaction, error) {
	var t domain.WalletTransaction
	err := row.Scan(
		&t.ID, &t.UserID, &t.TxType, &t.Amount, &t.BalanceBefore, &t.BalanceAfter,
		&t.Currency, &t.Description, &t.ReferenceID, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepo) Insert(ctx context.Context, tx *domain.WalletTransaction) (*InsertResult, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO wallet_transactions (
			id, user_id, tx_type, amount, balance_before, balance_after,
			currency, description, reference_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`,
		tx.ID, tx.UserID, tx.TxType, tx.Amount, tx.BalanceBefore, tx.BalanceAfter,
		tx.Currency, tx.Description, tx.ReferenceID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && tx.ReferenceID != nil {
			existing, ferr := r.FindByReference(ctx, *tx.ReferenceID, tx.TxType)
			if ferr != nil {
				return nil, ferr
			}
			if existing != nil {
				return &InsertResult{Created: false, Transaction: existing}, nil
			}
		}
		return nil, fmt.Errorf("insert wallet transaction: %w", err)
	}

	inserted, err := scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM wallet_transactions WHERE id = $1`, tx.ID))
	if err != nil {
		return nil, fmt.Errorf("read back wallet transaction: %w", err)
	}
	return &InsertResult{Created: true, Transaction: inserted}, nil
}

func (r *transactionRepo) FindByReference(ctx context.Context, referenceID string, txType domain.TxType) (*domain.WalletTransaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM wallet_transactions
		 WHERE reference_id = $1 AND tx_type = $2`,
		referenceID, txType,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find transaction by reference: %w", err)
	}
	return t, nil
}

func (r *transactionRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM wallet_transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete wallet transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet transaction %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *transactionRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.WalletTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM wallet_transactions
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var out []*domain.WalletTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
