package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/storage/memory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func apply(t *testing.T, l *Ledger, store interfaces.Store, amount decimal.Decimal, purpose string) models.Transaction {
	t.Helper()
	var entry models.Transaction
	require.NoError(t, store.WithTx(context.Background(), func(tx interfaces.Tx) error {
		var err error
		entry, err = l.Apply(context.Background(), tx, amount, purpose)
		return err
	}))
	return entry
}

func TestApplyDepositAndWithdraw(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStore()
	l := NewLedger(store)

	deposit := apply(t, l, store, d("100"), "donation from Ann")
	assert.Equal(t, models.TransactionDeposit, deposit.Kind)
	assert.True(t, deposit.Amount.Equal(d("100")))

	withdraw := apply(t, l, store, d("-30.50"), "printer ink")
	assert.Equal(t, models.TransactionWithdraw, withdraw.Kind)
	assert.True(t, withdraw.Amount.Equal(d("30.50")))

	balance, err := l.CurrentBalance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("69.50")))

	entries, err := l.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, deposit.ID, entries[0].ID)
	assert.Equal(t, withdraw.ID, entries[1].ID)
}

func TestApplyRejectsZeroAmountAndEmptyPurpose(t *testing.T) {
	store := memory.NewMemoryStore()
	l := NewLedger(store)

	err := store.WithTx(context.Background(), func(tx interfaces.Tx) error {
		_, err := l.Apply(context.Background(), tx, decimal.Zero, "nothing")
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	err = store.WithTx(context.Background(), func(tx interfaces.Tx) error {
		_, err := l.Apply(context.Background(), tx, d("5"), "  ")
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestOverdraftAllowedByDefault(t *testing.T) {
	store := memory.NewMemoryStore()
	l := NewLedger(store)

	apply(t, l, store, d("-25"), "rent")

	balance, err := l.CurrentBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("-25")))
}

func TestOverdraftRejection(t *testing.T) {
	store := memory.NewMemoryStore()
	l := NewLedger(store, WithOverdraftRejection(true))
	apply(t, l, store, d("10"), "seed")

	err := store.WithTx(context.Background(), func(tx interfaces.Tx) error {
		_, err := l.Apply(context.Background(), tx, d("-10.01"), "rent")
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	balance, err := l.CurrentBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("10")))
}

func TestReverseOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStore()
	l := NewLedger(store)
	original := apply(t, l, store, d("100"), "donation from Ann")

	var reversal models.Transaction
	require.NoError(t, store.WithTx(ctx, func(tx interfaces.Tx) error {
		var err error
		reversal, err = l.Reverse(ctx, tx, original.ID)
		return err
	}))
	assert.Equal(t, models.TransactionWithdraw, reversal.Kind)
	assert.Equal(t, original.ID, reversal.ReversalOf)
	assert.Equal(t, "reversal of "+original.ID, reversal.Purpose)

	err := store.WithTx(ctx, func(tx interfaces.Tx) error {
		_, err := l.Reverse(ctx, tx, original.ID)
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	err = store.WithTx(ctx, func(tx interfaces.Tx) error {
		_, err := l.Reverse(ctx, tx, reversal.ID)
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	err = store.WithTx(ctx, func(tx interfaces.Tx) error {
		_, err := l.Reverse(ctx, tx, "unknown")
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	balance, err := l.CurrentBalance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestAdjustReturnsNewBalance(t *testing.T) {
	store := memory.NewMemoryStore()
	l := NewLedger(store)

	entry, balance, err := l.Adjust(context.Background(), d("1000"), "opening balance")
	require.NoError(t, err)
	assert.Equal(t, "opening balance", entry.Purpose)
	assert.True(t, balance.Equal(d("1000")))
}

func TestSetBalanceRecordsDifference(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStore()
	l := NewLedger(store)
	apply(t, l, store, d("1000"), "opening balance")

	balance, err := l.SetBalance(ctx, d("750"), "bank statement")
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("750")))

	entries, err := l.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[1].SignedAmount().Equal(d("-250")))

	_, err = l.SetBalance(ctx, d("750"), "bank statement")
	require.NoError(t, err)
	entries, err = l.Transactions(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStore()
	l := NewLedger(store)
	apply(t, l, store, d("120"), "sale to Bob")
	apply(t, l, store, d("-20"), "stamps")

	sum, err := l.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, sum.Equal(d("100")))

	// a balance written behind the log's back is detected
	require.NoError(t, store.WithTx(ctx, func(tx interfaces.Tx) error {
		return tx.UpdateBalance(ctx, d("99"))
	}))
	_, err = l.Reconcile(ctx)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestAmountsKeepFourDecimalPlaces(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStore()
	l := NewLedger(store)
	apply(t, l, store, d("0.0001"), "petty cash")

	err := store.WithTx(ctx, func(tx interfaces.Tx) error {
		_, err := l.Apply(ctx, tx, d("-0.00005"), "rounding")
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = l.SetBalance(ctx, d("10.12345"), "bank statement")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// trailing zeros beyond the scale are not extra precision
	apply(t, l, store, d("1.500000"), "postage refund")

	sum, err := l.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, sum.Equal(d("1.5001")), sum.String())
}
