package payment

import (
	"context"
	"errors"
	"testing"

	"meeting-service/internal/domain"
	"meeting-service/internal/repository/repotest"
	"meeting-service/internal/usecase/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type paymentFixture struct {
	svc     *Service
	wallets *repotest.FakeWalletRepo
	txs     *repotest.FakeTransactionRepo
	credits *repotest.FakeCreditRepo
}

func newPaymentFixture() *paymentFixture {
	wallets := repotest.NewFakeWalletRepo()
	txs := repotest.NewFakeTransactionRepo()
	credits := repotest.NewFakeCreditRepo()
	ledgerSvc := ledger.New(wallets, txs, credits, nil, "USD", zap.NewNop())
	return &paymentFixture{
		svc:     New(ledgerSvc, txs, zap.NewNop()),
		wallets: wallets,
		txs:     txs,
		credits: credits,
	}
}

func TestIngestTopupAppliesOnce(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	cmd := domain.PaymentEventCommand{
		ReferenceID: "pay-001",
		EventType:   domain.TxTypeTopup,
		UserID:      "u1",
		Amount:      2500,
	}

	res, err := f.svc.IngestPaymentEvent(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, res.AlreadyProcessed)
	assert.Equal(t, int64(2500), res.BalanceAfter)
	assert.Equal(t, int64(2500), f.wallets.Balance("u1"))

	// At-least-once delivery: replays report processed, move nothing.
	for i := 0; i < 3; i++ {
		res, err = f.svc.IngestPaymentEvent(ctx, cmd)
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.True(t, res.AlreadyProcessed)
		assert.Equal(t, int64(2500), res.BalanceAfter)
	}
	assert.Equal(t, int64(2500), f.wallets.Balance("u1"))
	assert.Equal(t, 1, f.txs.CountByType(domain.TxTypeTopup))
}

func TestIngestCreditPurchaseGrantsOnce(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	cmd := domain.PaymentEventCommand{
		ReferenceID: "pay-002",
		EventType:   domain.TxTypeCreditPurchase,
		UserID:      "u1",
		Credits:     5,
	}

	res, err := f.svc.IngestPaymentEvent(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	c, err := f.credits.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, c.Available())

	// Replay: the anchor row blocks a second grant.
	res, err = f.svc.IngestPaymentEvent(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)

	c, err = f.credits.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, c.Available())

	// The anchor never moves money.
	assert.Equal(t, int64(0), f.wallets.Balance("u1"))
	assert.Equal(t, 1, f.txs.CountByType(domain.TxTypeCreditPurchase))
}

func TestIngestSubscriptionGrant(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	res, err := f.svc.IngestPaymentEvent(ctx, domain.PaymentEventCommand{
		ReferenceID: "sub-2026-09",
		EventType:   domain.TxTypeSubscription,
		UserID:      "u1",
		Credits:     10,
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)

	c, err := f.credits.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, c.Available())
}

func TestIngestGrantFailureCompensatesAnchor(t *testing.T) {
	f := newPaymentFixture()
	f.credits.GrantErr = errors.New("credits store down")
	ctx := context.Background()

	cmd := domain.PaymentEventCommand{
		ReferenceID: "pay-003",
		EventType:   domain.TxTypeCreditPurchase,
		UserID:      "u1",
		Credits:     3,
	}

	_, err := f.svc.IngestPaymentEvent(ctx, cmd)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrLedgerInconsistency)

	// The anchor was rolled back, so the retry can apply cleanly.
	assert.Equal(t, 0, f.txs.CountByType(domain.TxTypeCreditPurchase))

	f.credits.GrantErr = nil
	res, err := f.svc.IngestPaymentEvent(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	c, err := f.credits.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, c.Available())
}

func TestIngestValidation(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  domain.PaymentEventCommand
	}{
		{"missing reference", domain.PaymentEventCommand{EventType: domain.TxTypeTopup, UserID: "u1", Amount: 100}},
		{"missing user", domain.PaymentEventCommand{ReferenceID: "r1", EventType: domain.TxTypeTopup, Amount: 100}},
		{"non-positive topup", domain.PaymentEventCommand{ReferenceID: "r1", EventType: domain.TxTypeTopup, UserID: "u1", Amount: 0}},
		{"non-positive credits", domain.PaymentEventCommand{ReferenceID: "r1", EventType: domain.TxTypeCreditPurchase, UserID: "u1", Credits: 0}},
		{"unsupported type", domain.PaymentEventCommand{ReferenceID: "r1", EventType: domain.TxTypeCancellationFee, UserID: "u1", Amount: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.IngestPaymentEvent(ctx, tt.cmd)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestAdjustWallet(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	res, err := f.svc.AdjustWallet(ctx, domain.AdjustWalletCommand{
		AdminID: "admin-1",
		UserID:  "u1",
		Delta:   1500,
		Reason:  "support goodwill",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.BalanceBefore)
	assert.Equal(t, int64(1500), res.BalanceAfter)
	assert.Equal(t, domain.TxTypeAdminAdjustment, res.Transaction.TxType)
	assert.Contains(t, res.Transaction.Description, "admin-1")
	assert.Contains(t, res.Transaction.Description, "support goodwill")

	// Debits floor at zero like every other movement.
	res, err = f.svc.AdjustWallet(ctx, domain.AdjustWalletCommand{
		AdminID: "admin-1",
		UserID:  "u1",
		Delta:   -2000,
		Reason:  "chargeback",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.BalanceAfter)
}

func TestAdjustWalletValidation(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.svc.AdjustWallet(ctx, domain.AdjustWalletCommand{UserID: "u1", Delta: 100, Reason: "r"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.AdjustWallet(ctx, domain.AdjustWalletCommand{AdminID: "a", UserID: "u1", Delta: 100})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.AdjustWallet(ctx, domain.AdjustWalletCommand{AdminID: "a", UserID: "u1", Reason: "r"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
