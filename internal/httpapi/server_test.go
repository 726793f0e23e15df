package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/donations"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/expenses"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/inventory"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/ledger"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/payments"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/profit"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/programarea"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/sales"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewMemoryStore()
	logger, _ := test.NewNullLogger()
	l := ledger.NewLedger(store, ledger.WithLogger(logger))
	tracker := inventory.NewTracker(store, logger)
	allocator := programarea.NewAllocator(store)
	require.NoError(t, allocator.Seed(context.Background(), []string{"Climate Change"}))

	s := NewServer(Services{
		Ledger:    l,
		Inventory: tracker,
		Catalog:   inventory.NewCatalog(store),
		Areas:     allocator,
		Sales:     sales.NewProcessor(store, l, tracker, nil, logger),
		Donations: donations.NewProcessor(store, l, allocator, nil, logger),
		Expenses:  expenses.NewProcessor(store, l, nil, logger),
		Payments:  payments.NewWorkflow(store, nil, logger),
		Profit:    profit.NewCalculator(store, profit.DefaultServiceCostRatio),
	}, logger)

	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decodeError(t *testing.T, body []byte) errorBody {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func TestSaleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, _ := do(t, srv, http.MethodPost, "/balance/adjustments", map[string]any{"amount": "1000", "purpose": "opening balance"})
	require.Equal(t, http.StatusCreated, status)
	status, _ = do(t, srv, http.MethodPost, "/stock", map[string]any{"product_name": "Pen", "product_type": "Stationery", "quantity": 50, "price_per_unit": "2.0"})
	require.Equal(t, http.StatusCreated, status)

	sale := map[string]any{
		"client_name": "Alice",
		"items": []map[string]any{
			{"name": "Pen", "kind": "product", "product_type": "Stationery", "quantity": 10, "unit_price": "2.0", "total": "20.0"},
		},
		"total_amount": "20.0",
	}
	status, body := do(t, srv, http.MethodPost, "/sales", sale)
	require.Equal(t, http.StatusCreated, status, string(body))
	var recorded models.Sale
	require.NoError(t, json.Unmarshal(body, &recorded))

	status, body = do(t, srv, http.MethodGet, "/balance", nil)
	require.Equal(t, http.StatusOK, status)
	var balance balanceResponse
	require.NoError(t, json.Unmarshal(body, &balance))
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(1020)))

	sale["items"] = []map[string]any{{"name": "Pen", "kind": "product", "product_type": "Stationery", "quantity": 100, "unit_price": "2.0"}}
	sale["total_amount"] = "200"
	status, body = do(t, srv, http.MethodPost, "/sales", sale)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperrors.KindInsufficientStock, decodeError(t, body).Error)

	status, _ = do(t, srv, http.MethodDelete, "/sales/"+recorded.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, body = do(t, srv, http.MethodGet, "/sales/"+recorded.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apperrors.KindNotFound, decodeError(t, body).Error)

	status, _ = do(t, srv, http.MethodGet, "/balance/reconciliation", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRequestValidationMapsTo400(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/sales", map[string]any{"items": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, status)
	e := decodeError(t, body)
	assert.Equal(t, apperrors.KindValidation, e.Error)
	assert.Contains(t, e.Message, "client_name")

	status, body = do(t, srv, http.MethodPost, "/donations", map[string]any{
		"donor_name": "Ann", "amount": "10", "payment_method": "cash", "date": "01/03/2024",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, decodeError(t, body).Message, "date")

	status, _ = do(t, srv, http.MethodPost, "/expenses", map[string]any{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDonationToUnknownProject(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/donations", map[string]any{
		"donor_name": "Ann", "amount": "100", "payment_method": "cash", "date": "2024-03-01", "project": "Space",
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apperrors.KindNotFound, decodeError(t, body).Error)

	status, _ = do(t, srv, http.MethodPost, "/donations", map[string]any{
		"donor_name": "Ann", "amount": "100", "payment_method": "cash", "date": "2024-03-01", "project": "Climate Change",
	})
	assert.Equal(t, http.StatusCreated, status)

	status, body = do(t, srv, http.MethodGet, "/program-areas", nil)
	require.Equal(t, http.StatusOK, status)
	var areas []models.ProgramArea
	require.NoError(t, json.Unmarshal(body, &areas))
	require.Len(t, areas, 1)
	assert.True(t, areas[0].Balance.Equal(decimal.NewFromInt(100)))
}

func TestPaymentApprovalOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/employees", map[string]any{"name": "Mina", "position": "Field officer"})
	require.Equal(t, http.StatusCreated, status)
	var employee models.Employee
	require.NoError(t, json.Unmarshal(body, &employee))

	status, body = do(t, srv, http.MethodPost, "/payments", map[string]any{
		"employee_id": employee.ID, "amount": "800", "payment_period": "2024-03", "payment_method": "bank transfer",
	})
	require.Equal(t, http.StatusCreated, status)
	var payment models.Payment
	require.NoError(t, json.Unmarshal(body, &payment))

	approval := map[string]any{"approved": true, "remarks": "ok", "approver_id": "director"}
	status, _ = do(t, srv, http.MethodPost, "/payments/"+payment.ID+"/approval", approval)
	assert.Equal(t, http.StatusOK, status)

	status, body = do(t, srv, http.MethodPost, "/payments/"+payment.ID+"/approval", approval)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperrors.KindInvalidState, decodeError(t, body).Error)

	status, _ = do(t, srv, http.MethodPost, "/payments/"+payment.ID+"/approval", map[string]any{"approver_id": "director"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStockEndpoints(t *testing.T) {
	srv := newTestServer(t)

	status, _ := do(t, srv, http.MethodPut, "/stock/Pen/Stationery", map[string]any{"quantity": 1, "price_per_unit": "3"})
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, srv, http.MethodPost, "/stock/Pen/Stationery/decrement", nil)
	assert.Equal(t, http.StatusOK, status)
	status, body := do(t, srv, http.MethodPost, "/stock/Pen/Stationery/decrement", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperrors.KindInsufficientStock, decodeError(t, body).Error)

	status, _ = do(t, srv, http.MethodPost, "/stock/Pen/Stationery/increment", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = do(t, srv, http.MethodGet, "/stock/value", nil)
	require.Equal(t, http.StatusOK, status)
	var v valueResponse
	require.NoError(t, json.Unmarshal(body, &v))
	assert.True(t, v.Value.Equal(decimal.NewFromInt(3)))

	status, _ = do(t, srv, http.MethodDelete, "/stock/Pen/Stationery", nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = do(t, srv, http.MethodDelete, "/stock/Pen/Stationery", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	status, _ := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := do(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "bookkeeping_http_requests_total")
}

func TestGetByID(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/donations", map[string]any{
		"donor_name": "Ann", "amount": "100", "payment_method": "cash", "date": "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, status)
	var donation models.Donation
	require.NoError(t, json.Unmarshal(body, &donation))

	status, body = do(t, srv, http.MethodPost, "/expenses", map[string]any{
		"date": "2024-03-02", "person": "Ravi", "description": "stamps", "cost": "1.25", "quantity": 4,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var expense models.Expense
	require.NoError(t, json.Unmarshal(body, &expense))

	status, body = do(t, srv, http.MethodPost, "/employees", map[string]any{"name": "Mina", "position": "Field officer"})
	require.Equal(t, http.StatusCreated, status)
	var employee models.Employee
	require.NoError(t, json.Unmarshal(body, &employee))
	status, body = do(t, srv, http.MethodPost, "/payments", map[string]any{
		"employee_id": employee.ID, "amount": "800", "payment_period": "2024-03", "payment_method": "cash",
	})
	require.Equal(t, http.StatusCreated, status)
	var payment models.Payment
	require.NoError(t, json.Unmarshal(body, &payment))

	status, body = do(t, srv, http.MethodGet, "/donations/"+donation.ID, nil)
	require.Equal(t, http.StatusOK, status)
	var gotDonation models.Donation
	require.NoError(t, json.Unmarshal(body, &gotDonation))
	assert.Equal(t, "Ann", gotDonation.DonorName)

	status, body = do(t, srv, http.MethodGet, "/expenses/"+expense.ID, nil)
	require.Equal(t, http.StatusOK, status)
	var gotExpense models.Expense
	require.NoError(t, json.Unmarshal(body, &gotExpense))
	assert.True(t, gotExpense.Total.Equal(decimal.NewFromInt(5)))

	status, body = do(t, srv, http.MethodGet, "/payments/"+payment.ID, nil)
	require.Equal(t, http.StatusOK, status)
	var gotPayment models.Payment
	require.NoError(t, json.Unmarshal(body, &gotPayment))
	assert.Equal(t, models.PaymentPending, gotPayment.Status)

	for _, path := range []string{"/donations/nope", "/expenses/nope", "/payments/nope"} {
		status, body = do(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, status, path)
		assert.Equal(t, apperrors.KindNotFound, decodeError(t, body).Error, path)
	}
}

func TestStockPathIsTrimmed(t *testing.T) {
	srv := newTestServer(t)

	status, _ := do(t, srv, http.MethodPost, "/stock", map[string]any{"product_name": "Pen", "product_type": "Stationery", "quantity": 2, "price_per_unit": "2"})
	require.Equal(t, http.StatusCreated, status)
	status, _ = do(t, srv, http.MethodPost, "/stock/%20Pen/Stationery%20/increment", nil)
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, srv, http.MethodGet, "/stock", nil)
	require.Equal(t, http.StatusOK, status)
	var items []models.StockItem
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].Quantity)
}
