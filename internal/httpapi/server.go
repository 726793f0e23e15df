// Package httpapi exposes the bookkeeping operations over JSON/HTTP. It holds
// no business rules of its own.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/donations"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/expenses"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/inventory"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/ledger"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/metrics"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/payments"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/profit"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/programarea"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/sales"
)

// Services bundles the components the handlers call.
type Services struct {
	Ledger    *ledger.Ledger
	Inventory *inventory.Tracker
	Catalog   *inventory.Catalog
	Areas     *programarea.Allocator
	Sales     *sales.Processor
	Donations *donations.Processor
	Expenses  *expenses.Processor
	Payments  *payments.Workflow
	Profit    *profit.Calculator
}

type Server struct {
	svc      Services
	validate *validator.Validate
	log      *logrus.Logger
}

func NewServer(svc Services, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		svc:      svc,
		validate: newValidator(),
		log:      log,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/sales", s.recordSale).Methods(http.MethodPost)
	r.HandleFunc("/sales", s.listSales).Methods(http.MethodGet)
	r.HandleFunc("/sales/{id}", s.getSale).Methods(http.MethodGet)
	r.HandleFunc("/sales/{id}", s.deleteSale).Methods(http.MethodDelete)

	r.HandleFunc("/donations", s.recordDonation).Methods(http.MethodPost)
	r.HandleFunc("/donations", s.listDonations).Methods(http.MethodGet)
	r.HandleFunc("/donations/{id}", s.getDonation).Methods(http.MethodGet)
	r.HandleFunc("/donations/{id}", s.deleteDonation).Methods(http.MethodDelete)

	r.HandleFunc("/expenses", s.recordExpense).Methods(http.MethodPost)
	r.HandleFunc("/expenses", s.listExpenses).Methods(http.MethodGet)
	r.HandleFunc("/expenses/{id}", s.getExpense).Methods(http.MethodGet)
	r.HandleFunc("/expenses/{id}", s.deleteExpense).Methods(http.MethodDelete)

	r.HandleFunc("/employees", s.registerEmployee).Methods(http.MethodPost)
	r.HandleFunc("/employees", s.listEmployees).Methods(http.MethodGet)
	r.HandleFunc("/payments", s.requestPayment).Methods(http.MethodPost)
	r.HandleFunc("/payments", s.listPayments).Methods(http.MethodGet)
	r.HandleFunc("/payments/{id}", s.getPayment).Methods(http.MethodGet)
	r.HandleFunc("/payments/{id}/approval", s.approvePayment).Methods(http.MethodPost)

	r.HandleFunc("/balance", s.balance).Methods(http.MethodGet)
	r.HandleFunc("/balance", s.setBalance).Methods(http.MethodPut)
	r.HandleFunc("/balance/adjustments", s.adjustBalance).Methods(http.MethodPost)
	r.HandleFunc("/balance/reconciliation", s.reconcile).Methods(http.MethodGet)
	r.HandleFunc("/transactions", s.transactions).Methods(http.MethodGet)

	r.HandleFunc("/stock", s.listStock).Methods(http.MethodGet)
	r.HandleFunc("/stock", s.addStock).Methods(http.MethodPost)
	r.HandleFunc("/stock/value", s.stockValue).Methods(http.MethodGet)
	r.HandleFunc("/stock/{name}/{type}", s.setStock).Methods(http.MethodPut)
	r.HandleFunc("/stock/{name}/{type}", s.removeStock).Methods(http.MethodDelete)
	r.HandleFunc("/stock/{name}/{type}/increment", s.incrementStock).Methods(http.MethodPost)
	r.HandleFunc("/stock/{name}/{type}/decrement", s.decrementStock).Methods(http.MethodPost)

	r.HandleFunc("/products", s.listProducts).Methods(http.MethodGet)
	r.HandleFunc("/products", s.addProduct).Methods(http.MethodPost)
	r.HandleFunc("/products/{name}/{type}", s.removeProduct).Methods(http.MethodDelete)
	r.HandleFunc("/services", s.listServices).Methods(http.MethodGet)
	r.HandleFunc("/services", s.addService).Methods(http.MethodPost)

	r.HandleFunc("/program-areas", s.listProgramAreas).Methods(http.MethodGet)
	r.HandleFunc("/program-areas/{name}/budget", s.setBudget).Methods(http.MethodPut)

	r.HandleFunc("/profit", s.profitReport).Methods(http.MethodGet)
	r.HandleFunc("/profit/gross", s.grossProfit).Methods(http.MethodGet)
	r.HandleFunc("/profit/net", s.netProfit).Methods(http.MethodGet)

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware records every request under its route template so that
// ids in the path do not explode label cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		metrics.ObserveHTTP(r.Method, path, rec.status, start)
	})
}
