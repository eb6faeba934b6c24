package ledger

import (
	"context"
	"fmt"

	"meeting-service/internal/domain"
	"meeting-service/internal/repository"
	"meeting-service/pkg/id"

	"go.uber.org/zap"
)

// maxBalanceAttempts bounds the optimistic-concurrency retry loop for a
// single wallet delta.
const maxBalanceAttempts = 5

// WalletDeltaResult reports what a delta actually did. Applied=false
// means the reference id had already been processed and nothing moved.
type WalletDeltaResult struct {
	Transaction *domain.WalletTransaction
	Applied     bool
	Collected   int64 // amount actually applied after the zero floor
}

type Service struct {
	wallets  repository.WalletRepository
	txs      repository.TransactionRepository
	credits  repository.CreditRepository
	ids      *id.Generator
	notifier *Notifier // nil disables balance push
	currency string
	logger   *zap.Logger
}

func New(
	wallets repository.WalletRepository,
	txs repository.TransactionRepository,
	credits repository.CreditRepository,
	notifier *Notifier,
	currency string,
	logger *zap.Logger,
) *Service {
	return &Service{
		wallets:  wallets,
		txs:      txs,
		credits:  credits,
		ids:      id.NewGenerator(),
		notifier: notifier,
		currency: currency,
		logger:   logger,
	}
}

// ApplyWalletDelta moves the user's wallet balance by cmd.Amount with a
// floor of zero: over-debits collect only down to zero, the shortfall is
// not carried. The transaction row is written before the balance so the
// append-only log never misses a movement; if the balance write fails the
// row is rolled back, keeping the pair atomic from the caller's view.
func (s *Service) ApplyWalletDelta(ctx context.Context, cmd domain.WalletDeltaCommand) (*WalletDeltaResult, error) {
	if cmd.UserID == "" || !cmd.TxType.Valid() {
		return nil, fmt.Errorf("wallet delta for user %q type %q: %w", cmd.UserID, cmd.TxType, domain.ErrInvalidInput)
	}

	for attempt := 0; attempt < maxBalanceAttempts; attempt++ {
		w, err := s.wallets.GetOrCreate(ctx, cmd.UserID, s.currency)
		if err != nil {
			return nil, err
		}

		before := w.Balance
		after := before + cmd.Amount
		if after < 0 {
			after = 0
		}

		res, err := s.txs.Insert(ctx, &domain.WalletTransaction{
			ID:            s.ids.New(),
			UserID:        cmd.UserID,
			TxType:        cmd.TxType,
			Amount:        cmd.Amount,
			BalanceBefore: before,
			BalanceAfter:  after,
			Currency:      s.currency,
			Description:   cmd.Description,
			ReferenceID:   cmd.ReferenceID,
		})
		if err != nil {
			return nil, err
		}
		if !res.Created {
			// Idempotent replay: the reference id was already applied.
			s.logger.Info("wallet delta replayed, no-op",
				zap.String("user_id", cmd.UserID),
				zap.String("tx_type", string(cmd.TxType)),
				zap.Stringp("reference_id", cmd.ReferenceID))
			return &WalletDeltaResult{Transaction: res.Transaction, Applied: false}, nil
		}

		ok, err := s.wallets.UpdateBalanceOptimistic(ctx, cmd.UserID, after, w.Version)
		if err != nil {
			return nil, s.compensate(ctx, res.Transaction, err)
		}
		if !ok {
			// Version miss: someone else moved the balance between our
			// read and write. Roll the row back and retry on the fresh
			// balance.
			if cerr := s.txs.Delete(ctx, res.Transaction.ID); cerr != nil {
				s.logger.Error("compensating rollback failed",
					zap.String("transaction_id", res.Transaction.ID),
					zap.Error(cerr))
				return nil, fmt.Errorf("rollback of transaction %s failed: %v: %w",
					res.Transaction.ID, cerr, domain.ErrLedgerInconsistency)
			}
			continue
		}

		if s.notifier != nil {
			s.notifier.NotifyBalance(cmd.UserID, after, s.currency)
		}
		return &WalletDeltaResult{
			Transaction: res.Transaction,
			Applied:     true,
			Collected:   after - before,
		}, nil
	}

	return nil, fmt.Errorf("wallet delta for user %s: %w", cmd.UserID, domain.ErrWalletContention)
}

// compensate deletes the already-written transaction row after a failed
// balance update. If the delete also fails, the ledger is inconsistent
// and an operator has to reconcile by hand; nothing automatic is safe.
func (s *Service) compensate(ctx context.Context, tx *domain.WalletTransaction, cause error) error {
	if cerr := s.txs.Delete(ctx, tx.ID); cerr != nil {
		s.logger.Error("compensating rollback failed",
			zap.String("transaction_id", tx.ID),
			zap.String("user_id", tx.UserID),
			zap.NamedError("cause", cause),
			zap.Error(cerr))
		return fmt.Errorf("balance update failed (%v) and rollback of transaction %s failed (%v): %w",
			cause, tx.ID, cerr, domain.ErrLedgerInconsistency)
	}
	return fmt.Errorf("balance update rolled back: %w", cause)
}

// HoldCredits consumes credits if that many are available.
func (s *Service) HoldCredits(ctx context.Context, userID string, count int) error {
	if _, err := s.credits.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	held, err := s.credits.HoldAvailable(ctx, userID, count)
	if err != nil {
		return err
	}
	if !held {
		c, gerr := s.credits.GetOrCreate(ctx, userID)
		if gerr != nil {
			return gerr
		}
		return &domain.InsufficientCreditsError{Required: count, Available: c.Available()}
	}
	return nil
}

// ReleaseCredits returns held credits; `used` never drops below zero.
func (s *Service) ReleaseCredits(ctx context.Context, userID string, count int) (*domain.CreditBalance, error) {
	return s.credits.AdjustUsed(ctx, userID, -count)
}

func (s *Service) GrantCredits(ctx context.Context, userID string, count int) (*domain.CreditBalance, error) {
	return s.credits.GrantCredits(ctx, userID, count)
}

func (s *Service) WalletSummary(ctx context.Context, userID string) (*domain.WalletBalance, *domain.CreditBalance, error) {
	w, err := s.wallets.GetOrCreate(ctx, userID, s.currency)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.credits.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return w, c, nil
}

func (s *Service) ListTransactions(ctx context.Context, userID string, limit int) ([]*domain.WalletTransaction, error) {
	return s.txs.ListByUser(ctx, userID, limit)
}

// Notifier exposes the balance push hub for the websocket handler.
func (s *Service) BalanceNotifier() *Notifier {
	return s.notifier
}
