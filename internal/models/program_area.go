package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProgramArea is a named budget bucket that donations can be earmarked for.
type ProgramArea struct {
	Name      string          `json:"name"`
	Budget    decimal.Decimal `json:"budget"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationCompleted DonationStatus = "completed"
)

type Donation struct {
	ID            string          `json:"id"`
	DonorName     string          `json:"donor_name"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Date          time.Time       `json:"date"`
	Project       string          `json:"project,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Status        DonationStatus  `json:"status"`
	TransactionID string          `json:"transaction_id"`
	CreatedAt     time.Time       `json:"created_at"`
}
