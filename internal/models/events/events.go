package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicSaleRecorded     = "sale.recorded"
	TopicSaleDeleted      = "sale.deleted"
	TopicDonationRecorded = "donation.recorded"
	TopicDonationDeleted  = "donation.deleted"
	TopicExpenseRecorded  = "expense.recorded"
	TopicExpenseDeleted   = "expense.deleted"
	TopicPaymentRequested = "payment.requested"
	TopicPaymentProcessed = "payment.processed"
	TopicBalanceAdjusted  = "balance.adjusted"
)

type SaleRecorded struct {
	SaleID      string          `json:"sale_id"`
	ClientName  string          `json:"client_name"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	LineCount   int             `json:"line_count"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type SaleDeleted struct {
	SaleID      string          `json:"sale_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type DonationRecorded struct {
	DonationID string          `json:"donation_id"`
	DonorName  string          `json:"donor_name"`
	Amount     decimal.Decimal `json:"amount"`
	Project    string          `json:"project,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type DonationDeleted struct {
	DonationID string          `json:"donation_id"`
	Amount     decimal.Decimal `json:"amount"`
	Project    string          `json:"project,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type ExpenseRecorded struct {
	ExpenseID   string          `json:"expense_id"`
	Description string          `json:"description"`
	Total       decimal.Decimal `json:"total"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type ExpenseDeleted struct {
	ExpenseID  string          `json:"expense_id"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type PaymentRequested struct {
	PaymentID  string          `json:"payment_id"`
	EmployeeID string          `json:"employee_id"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type PaymentProcessed struct {
	PaymentID   string          `json:"payment_id"`
	EmployeeID  string          `json:"employee_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	ProcessedBy string          `json:"processed_by"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type BalanceAdjusted struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Purpose       string          `json:"purpose"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
