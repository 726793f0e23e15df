package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func TestViewReadsAccount(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance, updated_at FROM account WHERE id = 1")).
		WillReturnRows(sqlmock.NewRows([]string{"balance", "updated_at"}).AddRow("1020.00", now))
	mock.ExpectCommit()

	var account models.Account
	err := store.View(context.Background(), func(tx interfaces.Tx) error {
		var err error
		account, err = tx.GetAccount(context.Background())
		return err
	})
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(1020)))
	assert.Equal(t, now, account.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxCommits(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE account SET balance = $1")).
		WithArgs(decimal.NewFromInt(950)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx interfaces.Tx) error {
		return tx.UpdateBalance(context.Background(), decimal.NewFromInt(950))
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(interfaces.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxReportsCommitFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	err := store.WithTx(context.Background(), func(interfaces.Tx) error { return nil })
	require.ErrorIs(t, err, apperrors.ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockStockMissingRowIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM stock WHERE product_name = $1 AND product_type = $2 FOR UPDATE")).
		WithArgs("Pen", "Stationery").
		WillReturnRows(sqlmock.NewRows([]string{"product_name", "product_type", "quantity", "price_per_unit", "updated_at"}))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx interfaces.Tx) error {
		_, err := tx.LockStock(context.Background(), models.StockKey{ProductName: "Pen", ProductType: "Stationery"})
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSaleWithoutRowIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sales WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx interfaces.Tx) error {
		return tx.DeleteSale(context.Background(), "missing")
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSaleDecodesLineItems(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM sales WHERE id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "client_name", "line_items", "total_amount", "transaction_id", "created_at"}).
			AddRow("s1", "Alice", []byte(`[{"name":"Pen","kind":"product","product_type":"Stationery","quantity":10,"unit_price":"2","total":"20"}]`), "20", "t1", now))
	mock.ExpectCommit()

	var sale models.Sale
	err := store.View(context.Background(), func(tx interfaces.Tx) error {
		var err error
		sale, err = tx.GetSale(context.Background(), "s1")
		return err
	})
	require.NoError(t, err)
	require.Len(t, sale.LineItems, 1)
	assert.Equal(t, models.LineItemProduct, sale.LineItems[0].Kind)
	assert.Equal(t, int64(10), sale.LineItems[0].Quantity)
	assert.True(t, sale.LineItems[0].Total.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "t1", sale.TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasReversal(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM transactions WHERE reversal_of = $1)")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	var reversed bool
	err := store.View(context.Background(), func(tx interfaces.Tx) error {
		var err error
		reversed, err = tx.HasReversal(context.Background(), "t1")
		return err
	})
	require.NoError(t, err)
	assert.True(t, reversed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTransactionsKeepsLogOrder(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions ORDER BY seq")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "amount", "purpose", "reversal_of", "created_at"}).
			AddRow("t1", "deposit", "100", "donation from Ann", nil, now).
			AddRow("t2", "withdraw", "100", "reversal of t1", "t1", now))
	mock.ExpectCommit()

	var entries []models.Transaction
	err := store.View(context.Background(), func(tx interfaces.Tx) error {
		var err error
		entries, err = tx.ListTransactions(context.Background())
		return err
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].ReversalOf)
	assert.Equal(t, "t1", entries[1].ReversalOf)
	assert.True(t, entries[1].SignedAmount().Equal(decimal.NewFromInt(-100)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("op", nil))
	assert.ErrorIs(t, classify("op", &pq.Error{Code: "23505"}), apperrors.ErrInvalidState)
	assert.ErrorIs(t, classify("op", &pq.Error{Code: "23503", Constraint: "sales_transaction_id_fkey"}), apperrors.ErrNotFound)
	assert.ErrorIs(t, classify("op", &pq.Error{Code: "23514", Constraint: "stock_quantity_check"}), apperrors.ErrValidation)

	err := classify("op", errors.New("broken pipe"))
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	var storageErr *apperrors.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "op", storageErr.Op)
}
