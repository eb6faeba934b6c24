package payment

import (
	"context"
	"fmt"

	"meeting-service/internal/domain"
	"meeting-service/internal/repository"
	"meeting-service/internal/usecase/ledger"

	"go.uber.org/zap"
)

// Service ingests externally triggered financial events: payment
// provider webhooks and manual admin reconciliation. Delivery from the
// provider is at-least-once, so every entry point runs through the
// idempotency guard before the ledger is touched.
type Service struct {
	ledger *ledger.Service
	txs    repository.TransactionRepository
	logger *zap.Logger
}

func New(ledgerSvc *ledger.Service, txs repository.TransactionRepository, logger *zap.Logger) *Service {
	return &Service{ledger: ledgerSvc, txs: txs, logger: logger}
}

type IngestResult struct {
	Applied          bool  `json:"applied"`
	AlreadyProcessed bool  `json:"already_processed"`
	BalanceAfter     int64 `json:"balance_after"`
}

// IngestPaymentEvent applies a payment confirmation at most once per
// (reference_id, type). The check-then-act read here is advisory; the
// unique index behind TransactionRepository.Insert is the source of
// truth, and a duplicate-key insert comes back as AlreadyProcessed, not
// as an error.
func (s *Service) IngestPaymentEvent(ctx context.Context, cmd domain.PaymentEventCommand) (*IngestResult, error) {
	if cmd.ReferenceID == "" || cmd.UserID == "" {
		return nil, fmt.Errorf("reference_id and user_id are required: %w", domain.ErrInvalidInput)
	}

	switch cmd.EventType {
	case domain.TxTypeTopup:
		if cmd.Amount <= 0 {
			return nil, fmt.Errorf("topup amount must be positive: %w", domain.ErrInvalidInput)
		}
	case domain.TxTypeCreditPurchase, domain.TxTypeSubscription:
		if cmd.Credits <= 0 {
			return nil, fmt.Errorf("credit grant count must be positive: %w", domain.ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("unsupported payment event type %q: %w", cmd.EventType, domain.ErrInvalidInput)
	}

	existing, err := s.txs.FindByReference(ctx, cmd.ReferenceID, cmd.EventType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Info("duplicate payment event, no-op",
			zap.String("reference_id", cmd.ReferenceID),
			zap.String("event_type", string(cmd.EventType)))
		return &IngestResult{AlreadyProcessed: true, BalanceAfter: existing.BalanceAfter}, nil
	}

	amount := cmd.Amount
	description := "wallet top-up"
	if cmd.EventType != domain.TxTypeTopup {
		// Credit grants are paid out-of-band; the wallet row is the
		// zero-amount idempotency anchor and audit record.
		amount = 0
		description = fmt.Sprintf("%s of %d credits", cmd.EventType, cmd.Credits)
	}

	res, err := s.ledger.ApplyWalletDelta(ctx, domain.WalletDeltaCommand{
		UserID:      cmd.UserID,
		Amount:      amount,
		TxType:      cmd.EventType,
		Description: description,
		ReferenceID: &cmd.ReferenceID,
	})
	if err != nil {
		return nil, err
	}
	if !res.Applied {
		// A concurrent duplicate delivery won the insert race.
		return &IngestResult{AlreadyProcessed: true, BalanceAfter: res.Transaction.BalanceAfter}, nil
	}

	if cmd.EventType != domain.TxTypeTopup {
		if _, err := s.ledger.GrantCredits(ctx, cmd.UserID, cmd.Credits); err != nil {
			// Compensate the anchor row so a retried delivery can apply
			// the grant cleanly.
			if derr := s.txs.Delete(ctx, res.Transaction.ID); derr != nil {
				s.logger.Error("compensating rollback of credit grant anchor failed",
					zap.String("transaction_id", res.Transaction.ID),
					zap.NamedError("cause", err),
					zap.Error(derr))
				return nil, fmt.Errorf("credit grant failed (%v) and rollback failed (%v): %w",
					err, derr, domain.ErrLedgerInconsistency)
			}
			return nil, fmt.Errorf("credit grant rolled back: %w", err)
		}
	}

	s.logger.Info("payment event applied",
		zap.String("reference_id", cmd.ReferenceID),
		zap.String("event_type", string(cmd.EventType)),
		zap.String("user_id", cmd.UserID),
		zap.Int64("amount", amount),
		zap.Int("credits", cmd.Credits))
	return &IngestResult{Applied: true, BalanceAfter: res.Transaction.BalanceAfter}, nil
}

type AdjustResult struct {
	BalanceBefore int64                     `json:"balance_before"`
	BalanceAfter  int64                     `json:"balance_after"`
	Transaction   *domain.WalletTransaction `json:"transaction"`
}

// AdjustWallet is the admin-only manual movement. The reason is
// mandatory and lands in both the transaction description and the audit
// log line.
func (s *Service) AdjustWallet(ctx context.Context, cmd domain.AdjustWalletCommand) (*AdjustResult, error) {
	if cmd.AdminID == "" || cmd.UserID == "" {
		return nil, fmt.Errorf("admin_id and user_id are required: %w", domain.ErrInvalidInput)
	}
	if cmd.Reason == "" {
		return nil, fmt.Errorf("a non-empty reason is required: %w", domain.ErrInvalidInput)
	}
	if cmd.Delta == 0 {
		return nil, fmt.Errorf("delta must be non-zero: %w", domain.ErrInvalidInput)
	}

	res, err := s.ledger.ApplyWalletDelta(ctx, domain.WalletDeltaCommand{
		UserID:      cmd.UserID,
		Amount:      cmd.Delta,
		TxType:      domain.TxTypeAdminAdjustment,
		Description: fmt.Sprintf("admin adjustment by %s: %s", cmd.AdminID, cmd.Reason),
		ReferenceID: cmd.ReferenceID,
	})
	if err != nil {
		return nil, err
	}

	// Audit entry: operator-visible record of who moved whose money.
	s.logger.Info("admin wallet adjustment",
		zap.String("admin_id", cmd.AdminID),
		zap.String("user_id", cmd.UserID),
		zap.Int64("delta", cmd.Delta),
		zap.String("reason", cmd.Reason),
		zap.Bool("applied", res.Applied),
		zap.Int64("balance_before", res.Transaction.BalanceBefore),
		zap.Int64("balance_after", res.Transaction.BalanceAfter))

	return &AdjustResult{
		BalanceBefore: res.Transaction.BalanceBefore,
		BalanceAfter:  res.Transaction.BalanceAfter,
		Transaction:   res.Transaction,
	}, nil
}
