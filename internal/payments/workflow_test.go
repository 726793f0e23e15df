package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/ledger"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/storage/memory"
)

// faultyStore fails every UpdatePayment call made inside a write transaction.
type faultyStore struct {
	interfaces.Store
}

func (s faultyStore) WithTx(ctx context.Context, fn func(tx interfaces.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx interfaces.Tx) error {
		return fn(faultyTx{Tx: tx})
	})
}

type faultyTx struct {
	interfaces.Tx
}

func (faultyTx) UpdatePayment(context.Context, models.Payment) error {
	return errors.New("disk full")
}

func request(t *testing.T, w *Workflow) models.Payment {
	t.Helper()
	ctx := context.Background()
	employee, err := w.RegisterEmployee(ctx, "Mina", "Field officer")
	require.NoError(t, err)

	payment, err := w.Request(ctx, RequestPayment{
		EmployeeID:    employee.ID,
		Amount:        decimal.NewFromInt(800),
		PaymentPeriod: "2024-03",
		PaymentMethod: "bank transfer",
	})
	require.NoError(t, err)
	return payment
}

func TestPaymentTransitionsOnce(t *testing.T) {
	ctx := context.Background()
	w := NewWorkflow(memory.NewMemoryStore(), nil, nil)
	payment := request(t, w)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Nil(t, payment.ApprovedAt)

	approved, err := w.Approve(ctx, ApprovePayment{PaymentID: payment.ID, Approved: true, Remarks: "ok", ApproverID: "director"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, "director", approved.ProcessedBy)

	_, err = w.Approve(ctx, ApprovePayment{PaymentID: payment.ID, Approved: false, ApproverID: "director"})
	require.ErrorIs(t, err, apperrors.ErrInvalidState)

	stored, err := w.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentApproved, stored.Status)
	assert.Equal(t, "ok", stored.Remarks)
}

func TestRejectIsTerminal(t *testing.T) {
	ctx := context.Background()
	w := NewWorkflow(memory.NewMemoryStore(), nil, nil)
	payment := request(t, w)

	rejected, err := w.Approve(ctx, ApprovePayment{PaymentID: payment.ID, Approved: false, Remarks: "missing timesheet", ApproverID: "director"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, rejected.Status)
	assert.True(t, rejected.Status.Terminal())

	_, err = w.Approve(ctx, ApprovePayment{PaymentID: payment.ID, Approved: true, ApproverID: "director"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestApprovalDoesNotTouchLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStore()
	w := NewWorkflow(store, nil, nil)
	payment := request(t, w)

	_, err := w.Approve(ctx, ApprovePayment{PaymentID: payment.ID, Approved: true, ApproverID: "director"})
	require.NoError(t, err)

	entries, err := ledger.NewLedger(store).Transactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRequestForUnknownEmployee(t *testing.T) {
	w := NewWorkflow(memory.NewMemoryStore(), nil, nil)

	_, err := w.Request(context.Background(), RequestPayment{
		EmployeeID:    "ghost",
		Amount:        decimal.NewFromInt(10),
		PaymentPeriod: "2024-03",
		PaymentMethod: "cash",
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err := w.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestApproveUnknownPayment(t *testing.T) {
	w := NewWorkflow(memory.NewMemoryStore(), nil, nil)
	_, err := w.Approve(context.Background(), ApprovePayment{PaymentID: "nope", Approved: true})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestApprovalRollsBackOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStore()
	w := NewWorkflow(store, nil, nil)
	payment := request(t, w)

	faulty := NewWorkflow(faultyStore{Store: store}, nil, nil)
	_, err := faulty.Approve(ctx, ApprovePayment{PaymentID: payment.ID, Approved: true, ApproverID: "director"})
	require.ErrorIs(t, err, apperrors.ErrStorage)

	stored, err := w.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.Status)
	assert.Nil(t, stored.ApprovedAt)

	_, err = w.Approve(ctx, ApprovePayment{PaymentID: payment.ID, Approved: true, ApproverID: "director"})
	assert.NoError(t, err)
}

func TestRequestValidation(t *testing.T) {
	w := NewWorkflow(memory.NewMemoryStore(), nil, nil)
	_, err := w.Request(context.Background(), RequestPayment{EmployeeID: "e1", Amount: decimal.NewFromInt(-5), PaymentPeriod: "2024-03", PaymentMethod: "cash"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = w.Request(context.Background(), RequestPayment{EmployeeID: "e1", Amount: decimal.RequireFromString("800.00001"), PaymentPeriod: "2024-03", PaymentMethod: "cash"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = w.RegisterEmployee(context.Background(), "", "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
