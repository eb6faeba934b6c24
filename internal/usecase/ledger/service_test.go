package ledger

import (
	"context"
	"errors"
	"testing"

	"meeting-service/internal/domain"
	"meeting-service/internal/repository/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ledgerFixture struct {
	svc     *Service
	wallets *repotest.FakeWalletRepo
	txs     *repotest.FakeTransactionRepo
	credits *repotest.FakeCreditRepo
}

func newLedgerFixture() *ledgerFixture {
	wallets := repotest.NewFakeWalletRepo()
	txs := repotest.NewFakeTransactionRepo()
	credits := repotest.NewFakeCreditRepo()
	return &ledgerFixture{
		svc:     New(wallets, txs, credits, nil, "USD", zap.NewNop()),
		wallets: wallets,
		txs:     txs,
		credits: credits,
	}
}

func TestApplyWalletDeltaRecordsBeforeAndAfter(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	res, err := f.svc.ApplyWalletDelta(ctx, domain.WalletDeltaCommand{
		UserID:      "u1",
		Amount:      1000,
		TxType:      domain.TxTypeTopup,
		Description: "wallet top-up",
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, int64(0), res.Transaction.BalanceBefore)
	assert.Equal(t, int64(1000), res.Transaction.BalanceAfter)
	assert.Equal(t, int64(1000), res.Collected)
	assert.Equal(t, int64(1000), f.wallets.Balance("u1"))
}

func TestApplyWalletDeltaIdempotentReplay(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	ref := "evt-42"

	cmd := domain.WalletDeltaCommand{
		UserID:      "u1",
		Amount:      750,
		TxType:      domain.TxTypeTopup,
		Description: "wallet top-up",
		ReferenceID: &ref,
	}

	first, err := f.svc.ApplyWalletDelta(ctx, cmd)
	require.NoError(t, err)
	require.True(t, first.Applied)

	// Replays: same reference id, any number of times.
	for i := 0; i < 5; i++ {
		again, err := f.svc.ApplyWalletDelta(ctx, cmd)
		require.NoError(t, err)
		assert.False(t, again.Applied)
		assert.Equal(t, first.Transaction.ID, again.Transaction.ID)
	}

	assert.Equal(t, int64(750), f.wallets.Balance("u1"))
	assert.Equal(t, 1, f.txs.CountByType(domain.TxTypeTopup))
}

func TestApplyWalletDeltaClampsAtZero(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	_, err := f.svc.ApplyWalletDelta(ctx, domain.WalletDeltaCommand{
		UserID: "u1", Amount: 300, TxType: domain.TxTypeTopup, Description: "seed",
	})
	require.NoError(t, err)

	// Over-debit: only 300 is collectable, the shortfall is dropped.
	res, err := f.svc.ApplyWalletDelta(ctx, domain.WalletDeltaCommand{
		UserID: "u1", Amount: -500, TxType: domain.TxTypeCancellationFee, Description: "fee",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Transaction.BalanceAfter)
	assert.Equal(t, int64(-300), res.Collected)
	assert.Equal(t, int64(0), f.wallets.Balance("u1"))

	// Further debits stay at zero.
	res, err = f.svc.ApplyWalletDelta(ctx, domain.WalletDeltaCommand{
		UserID: "u1", Amount: -100, TxType: domain.TxTypeAdminAdjustment, Description: "debit",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Transaction.BalanceAfter)
	assert.Equal(t, int64(0), res.Collected)
}

func TestApplyWalletDeltaRetriesOnVersionMiss(t *testing.T) {
	f := newLedgerFixture()
	f.wallets.ForceVersionMisses = 2
	ctx := context.Background()

	res, err := f.svc.ApplyWalletDelta(ctx, domain.WalletDeltaCommand{
		UserID: "u1", Amount: 200, TxType: domain.TxTypeTopup, Description: "top-up",
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, int64(200), f.wallets.Balance("u1"))

	// Lost-race rows were compensated away: exactly one row remains.
	rows, err := f.txs.ListByUser(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestApplyWalletDeltaRollsBackOnBalanceFailure(t *testing.T) {
	f := newLedgerFixture()
	f.wallets.UpdateErr = errors.New("connection reset")
	ctx := context.Background()

	_, err := f.svc.ApplyWalletDelta(ctx, domain.WalletDeltaCommand{
		UserID: "u1", Amount: 100, TxType: domain.TxTypeTopup, Description: "top-up",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrLedgerInconsistency)

	// The transaction row was compensated, so log and balance agree.
	rows, lerr := f.txs.ListByUser(ctx, "u1", 10)
	require.NoError(t, lerr)
	assert.Empty(t, rows)
	assert.Equal(t, int64(0), f.wallets.Balance("u1"))
}

func TestApplyWalletDeltaSurfacesInconsistency(t *testing.T) {
	f := newLedgerFixture()
	f.wallets.UpdateErr = errors.New("connection reset")
	f.txs.DeleteErr = errors.New("also down")
	ctx := context.Background()

	_, err := f.svc.ApplyWalletDelta(ctx, domain.WalletDeltaCommand{
		UserID: "u1", Amount: 100, TxType: domain.TxTypeTopup, Description: "top-up",
	})
	require.ErrorIs(t, err, domain.ErrLedgerInconsistency)
}

func TestApplyWalletDeltaRejectsBadInput(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	_, err := f.svc.ApplyWalletDelta(ctx, domain.WalletDeltaCommand{
		UserID: "", Amount: 100, TxType: domain.TxTypeTopup,
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.ApplyWalletDelta(ctx, domain.WalletDeltaCommand{
		UserID: "u1", Amount: 100, TxType: "bogus",
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHoldAndReleaseCredits(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	f.credits.Seed("u1", 2, 0)

	require.NoError(t, f.svc.HoldCredits(ctx, "u1", 2))
	assert.Equal(t, 2, f.credits.Used("u1"))

	err := f.svc.HoldCredits(ctx, "u1", 1)
	var insufficient *domain.InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Required)
	assert.Equal(t, 0, insufficient.Available)

	c, err := f.svc.ReleaseCredits(ctx, "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Used)

	// Releases never drive used below zero.
	c, err = f.svc.ReleaseCredits(ctx, "u1", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Used)
}
