package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LineItemKind string

const (
	LineItemProduct LineItemKind = "product"
	LineItemService LineItemKind = "service"
)

func (k LineItemKind) Valid() bool {
	return k == LineItemProduct || k == LineItemService
}

// LineItem is one entry of a sale. ProductType is only meaningful for
// product lines, where it selects the stock row together with Name.
type LineItem struct {
	Name        string          `json:"name"`
	Kind        LineItemKind    `json:"kind"`
	ProductType string          `json:"product_type,omitempty"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

func (l LineItem) StockKey() StockKey {
	return StockKey{ProductName: l.Name, ProductType: l.ProductType}
}

// Sale is immutable once recorded; it can only be deleted as a whole.
type Sale struct {
	ID            string          `json:"id"`
	ClientName    string          `json:"client_name"`
	LineItems     []LineItem      `json:"line_items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TransactionID string          `json:"transaction_id"`
	CreatedAt     time.Time       `json:"created_at"`
}
