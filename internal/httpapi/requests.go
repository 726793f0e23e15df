package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
)

const dateLayout = "2006-01-02"

// Money fields are left to the domain packages, which own the amount rules.

type lineItemRequest struct {
	Name        string          `json:"name" validate:"required"`
	Kind        string          `json:"kind" validate:"required,oneof=product service"`
	ProductType string          `json:"product_type" validate:"required_if=Kind product"`
	Quantity    int64           `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

type saleRequest struct {
	ClientName  string            `json:"client_name" validate:"required"`
	Items       []lineItemRequest `json:"items" validate:"required,min=1,dive"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
}

func (r saleRequest) lineItems() []models.LineItem {
	items := make([]models.LineItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, models.LineItem{
			Name:        it.Name,
			Kind:        models.LineItemKind(it.Kind),
			ProductType: it.ProductType,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}
	return items
}

type donationRequest struct {
	DonorName     string          `json:"donor_name" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	Date          string          `json:"date" validate:"required,datetime=2006-01-02"`
	Project       string          `json:"project"`
	Notes         string          `json:"notes"`
}

type expenseRequest struct {
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Person      string          `json:"person" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Cost        decimal.Decimal `json:"cost"`
	Quantity    int64           `json:"quantity" validate:"gt=0"`
}

type employeeRequest struct {
	Name     string `json:"name" validate:"required"`
	Position string `json:"position"`
}

type paymentRequest struct {
	EmployeeID    string          `json:"employee_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentPeriod string          `json:"payment_period" validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	Description   string          `json:"description"`
}

type approvalRequest struct {
	Approved   *bool  `json:"approved" validate:"required"`
	Remarks    string `json:"remarks"`
	ApproverID string `json:"approver_id" validate:"required"`
}

type adjustmentRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Purpose string          `json:"purpose" validate:"required"`
}

type setBalanceRequest struct {
	Balance decimal.Decimal `json:"balance"`
	Purpose string          `json:"purpose"`
}

type stockAddRequest struct {
	ProductName  string          `json:"product_name" validate:"required"`
	ProductType  string          `json:"product_type" validate:"required"`
	Quantity     int64           `json:"quantity" validate:"gt=0"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

type stockSetRequest struct {
	Quantity     int64           `json:"quantity" validate:"gte=0"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

type productRequest struct {
	Name         string          `json:"name" validate:"required"`
	Type         string          `json:"type" validate:"required"`
	BuyingPrice  decimal.Decimal `json:"buying_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

type serviceRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

type budgetRequest struct {
	Budget decimal.Decimal `json:"budget"`
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, apperrors.Invalid(field, "must be a date in YYYY-MM-DD form")
	}
	return t, nil
}
