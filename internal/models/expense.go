package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Person        string          `json:"person"`
	Description   string          `json:"description"`
	Cost          decimal.Decimal `json:"cost"`
	Quantity      int64           `json:"quantity"`
	Total         decimal.Decimal `json:"total"`
	TransactionID string          `json:"transaction_id"`
	CreatedAt     time.Time       `json:"created_at"`
}
