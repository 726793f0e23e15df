package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentApproved || s == PaymentRejected
}

type Employee struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Position  string    `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// Payment is a payroll-style payment request. It starts pending and is
// approved or rejected exactly once.
type Payment struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employee_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentPeriod string          `json:"payment_period"`
	PaymentMethod string          `json:"payment_method"`
	Description   string          `json:"description,omitempty"`
	Status        PaymentStatus   `json:"status"`
	Remarks       string          `json:"remarks,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	ProcessedBy   string          `json:"processed_by,omitempty"`
}
