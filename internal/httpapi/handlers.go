package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/donations"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/expenses"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/payments"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/sales"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func stockKey(r *http.Request) models.StockKey {
	vars := mux.Vars(r)
	return models.StockKey{ProductName: vars["name"], ProductType: vars["type"]}.Trimmed()
}

// Sales

func (s *Server) recordSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, "recordSale", err)
		return
	}
	sale, err := s.svc.Sales.Record(r.Context(), sales.RecordSale{
		ClientName:  req.ClientName,
		Items:       req.lineItems(),
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		s.writeError(w, r, "recordSale", err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (s *Server) listSales(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Sales.List(r.Context())
	if err != nil {
		s.writeError(w, r, "listSales", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getSale(w http.ResponseWriter, r *http.Request) {
	sale, err := s.svc.Sales.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, "getSale", err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (s *Server) deleteSale(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Sales.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, "deleteSale", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Donations

func (s *Server) recordDonation(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, "recordDonation", err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		s.writeError(w, r, "recordDonation", err)
		return
	}
	donation, err := s.svc.Donations.Record(r.Context(), donations.RecordDonation{
		DonorName:     req.DonorName,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Date:          date,
		Project:       req.Project,
		Notes:         req.Notes,
	})
	if err != nil {
		s.writeError(w, r, "recordDonation", err)
		return
	}
	writeJSON(w, http.StatusCreated, donation)
}

func (s *Server) listDonations(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Donations.List(r.Context())
	if err != nil {
		s.writeError(w, r, "listDonations", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getDonation(w http.ResponseWriter, r *http.Request) {
	donation, err := s.svc.Donations.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, "getDonation", err)
		return
	}
	writeJSON(w, http.StatusOK, donation)
}

func (s *Server) deleteDonation(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Donations.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, "deleteDonation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Expenses

func (s *Server) recordExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, "recordExpense", err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		s.writeError(w, r, "recordExpense", err)
		return
	}
	expense, err := s.svc.Expenses.Record(r.Context(), expenses.RecordExpense{
		Date:        date,
		Person:      req.Person,
		Description: req.Description,
		Cost:        req.Cost,
		Quantity:    req.Quantity,
	})
	if err != nil {
		s.writeError(w, r, "recordExpense", err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Expenses.List(r.Context())
	if err != nil {
		s.writeError(w, r, "listExpenses", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.svc.Expenses.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, "getExpense", err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Expenses.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, "deleteExpense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Employees and payments

func (s *Server) registerEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, "registerEmployee", err)
		return
	}
	employee, err := s.svc.Payments.RegisterEmployee(r.Context(), req.Name, req.Position)
	if err != nil {
		s.writeError(w, r, "registerEmployee", err)
		return
	}
	writeJSON(w, http.StatusCreated, employee)
}

func (s *Server) listEmployees(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Payments.ListEmployees(r.Context())
	if err != nil {
		s.writeError(w, r, "listEmployees", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) requestPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, "requestPayment", err)
		return
	}
	payment, err := s.svc.Payments.Request(r.Context(), payments.RequestPayment{
		EmployeeID:    req.EmployeeID,
		Amount:        req.Amount,
		PaymentPeriod: req.PaymentPeriod,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
	})
	if err != nil {
		s.writeError(w, r, "requestPayment", err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Payments.List(r.Context())
	if err != nil {
		s.writeError(w, r, "listPayments", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := s.svc.Payments.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, "getPayment", err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) approvePayment(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, "approvePayment", err)
		return
	}
	payment, err := s.svc.Payments.Approve(r.Context(), payments.ApprovePayment{
		PaymentID:  mux.Vars(r)["id"],
		Approved:   *req.Approved,
		Remarks:    req.Remarks,
		ApproverID: req.ApproverID,
	})
	if err != nil {
		s.writeError(w, r, "approvePayment", err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// Balance

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.svc.Ledger.CurrentBalance(r.Context())
	if err != nil {
		s.writeError(w, r, "balance", err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

func (s *Server) adjustBalance(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, "adjustBalance", err)
		return
	}
	entry, balance, err := s.svc.Ledger.Adjust(r.Context(), req.Amount, req.Purpose)
	if err != nil {
		s.writeError(w, r, "adjustBalance", err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Transaction models.Transaction `json:"transaction"`
		Balance     decimal.Decimal    `json:"balance"`
	}{entry, balance})
}

func (s *Server) setBalance(w http.ResponseWriter, r *http.Request) {
	var req setBalanceRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, "setBalance", err)
		return
	}
	purpose := strings.TrimSpace(req.Purpose)
	if purpose == "" {
		purpose = "balance set to " + req.Balance.String()
	}
	balance, err := s.svc.Ledger.SetBalance(r.Context(), req.Balance, purpose)
	if err != nil {
		s.writeError(w, r, "setBalance", err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Ledger.Reconcile(r.Context())
	if err != nil {
		s.writeError(w, r, "reconcile", err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: sum})
}

func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Ledger.Transactions(r.Context())
	if err != nil {
		s.writeError(w, r, "transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Stock and catalog

func (s *Server) listStock(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Inventory.List(r.Context())
	if err != nil {
		s.writeError(w, r, "listStock", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) addStock(w http.ResponseWriter, r *http.Request) {
	var req stockAddRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, "addStock", err)
		return
	}
	key := models.StockKey{ProductName: req.ProductName, ProductType: req.ProductType}.Trimmed()
	item, err := s.svc.Inventory.AddStock(r.Context(), key, req.Quantity, req.PricePerUnit)
	if err != nil {
		s.writeError(w, r, "addStock", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) setStock(w http.ResponseWriter, r *http.Request) {
	var req stockSetRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, "setStock", err)
		return
	}
	item, err := s.svc.Inventory.SetStock(r.Context(), stockKey(r), req.Quantity, req.PricePerUnit)
	if err != nil {
		s.writeError(w, r, "setStock", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) removeStock(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Inventory.RemoveStock(r.Context(), stockKey(r)); err != nil {
		s.writeError(w, r, "removeStock", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) incrementStock(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.Inventory.IncrementOne(r.Context(), stockKey(r))
	if err != nil {
		s.writeError(w, r, "incrementStock", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) decrementStock(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.Inventory.DecrementOne(r.Context(), stockKey(r))
	if err != nil {
		s.writeError(w, r, "decrementStock", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type valueResponse struct {
	Value decimal.Decimal `json:"value"`
}

func (s *Server) stockValue(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Profit.TotalStockValue(r.Context())
	if err != nil {
		s.writeError(w, r, "stockValue", err)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Value: v})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Catalog.ListProducts(r.Context())
	if err != nil {
		s.writeError(w, r, "listProducts", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) addProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, "addProduct", err)
		return
	}
	p, err := s.svc.Catalog.AddProduct(r.Context(), models.Product{
		Name:         req.Name,
		Type:         req.Type,
		BuyingPrice:  req.BuyingPrice,
		SellingPrice: req.SellingPrice,
	})
	if err != nil {
		s.writeError(w, r, "addProduct", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) removeProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Catalog.RemoveProduct(r.Context(), stockKey(r)); err != nil {
		s.writeError(w, r, "removeProduct", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Catalog.ListServices(r.Context())
	if err != nil {
		s.writeError(w, r, "listServices", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) addService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, "addService", err)
		return
	}
	svc, err := s.svc.Catalog.AddService(r.Context(), req.Name, req.Description, req.Price)
	if err != nil {
		s.writeError(w, r, "addService", err)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

// Program areas

func (s *Server) listProgramAreas(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Areas.List(r.Context())
	if err != nil {
		s.writeError(w, r, "listProgramAreas", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) setBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, "setBudget", err)
		return
	}
	area, err := s.svc.Areas.SetBudget(r.Context(), mux.Vars(r)["name"], req.Budget)
	if err != nil {
		s.writeError(w, r, "setBudget", err)
		return
	}
	writeJSON(w, http.StatusOK, area)
}

// Profit

func (s *Server) profitReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Profit.Report(r.Context())
	if err != nil {
		s.writeError(w, r, "profitReport", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) grossProfit(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Profit.GrossProfit(r.Context())
	if err != nil {
		s.writeError(w, r, "grossProfit", err)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Value: v})
}

func (s *Server) netProfit(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Profit.NetProfit(r.Context())
	if err != nil {
		s.writeError(w, r, "netProfit", err)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Value: v})
}
