package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StockKey identifies a stock row.
type StockKey struct {
	ProductName string `json:"product_name"`
	ProductType string `json:"product_type"`
}

func (k StockKey) String() string {
	return fmt.Sprintf("%s/%s", k.ProductName, k.ProductType)
}

// Trimmed drops surrounding whitespace so " Pen" and "Pen" name one row.
func (k StockKey) Trimmed() StockKey {
	return StockKey{ProductName: strings.TrimSpace(k.ProductName), ProductType: strings.TrimSpace(k.ProductType)}
}

// Less orders keys so that row locks are always taken in the same order.
func (k StockKey) Less(o StockKey) bool {
	if k.ProductName != o.ProductName {
		return k.ProductName < o.ProductName
	}
	return k.ProductType < o.ProductType
}

type StockItem struct {
	ProductName  string          `json:"product_name"`
	ProductType  string          `json:"product_type"`
	Quantity     int64           `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (s StockItem) Key() StockKey {
	return StockKey{ProductName: s.ProductName, ProductType: s.ProductType}
}

// Value is quantity * price per unit.
func (s StockItem) Value() decimal.Decimal {
	return s.PricePerUnit.Mul(decimal.NewFromInt(s.Quantity))
}

// Product is a catalog entry; BuyingPrice feeds cost of goods sold.
type Product struct {
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	BuyingPrice  decimal.Decimal `json:"buying_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

func (p Product) Key() StockKey {
	return StockKey{ProductName: p.Name, ProductType: p.Type}
}

// Service is a catalog entry for non-stock work sold to clients.
type Service struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}
