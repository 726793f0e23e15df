// Package profit derives stock value and profit figures from stored sales,
// stock, catalog and expenses. Nothing here is cached; every call
// recomputes from a fresh snapshot.
package profit

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
)

// DefaultServiceCostRatio is the share of a service line's price counted as
// its cost.
var DefaultServiceCostRatio = decimal.RequireFromString("0.5")

// Snapshot is the set of stored facts profit is computed from.
type Snapshot struct {
	Stock    []models.StockItem
	Products []models.Product
	Sales    []models.Sale
	Expenses []models.Expense
}

type Report struct {
	TotalStockValue   decimal.Decimal `json:"total_stock_value"`
	TotalSalesRevenue decimal.Decimal `json:"total_sales_revenue"`
	CostOfGoodsSold   decimal.Decimal `json:"cost_of_goods_sold"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	TotalExpenses     decimal.Decimal `json:"total_expenses"`
	NetProfit         decimal.Decimal `json:"net_profit"`
	ServiceCostRatio  decimal.Decimal `json:"service_cost_ratio"`
}

// Compute derives the report from s.
//
// A product line costs quantity * buying price. The buying price comes from
// the product catalog; products missing from the catalog fall back to the
// stock row's price per unit, and to zero when neither exists. A service
// line costs quantity * unit price * serviceCostRatio.
func Compute(s Snapshot, serviceCostRatio decimal.Decimal) Report {
	r := Report{
		TotalStockValue:   decimal.Zero,
		TotalSalesRevenue: decimal.Zero,
		CostOfGoodsSold:   decimal.Zero,
		TotalExpenses:     decimal.Zero,
		ServiceCostRatio:  serviceCostRatio,
	}

	stockPrices := make(map[models.StockKey]decimal.Decimal, len(s.Stock))
	for _, item := range s.Stock {
		r.TotalStockValue = r.TotalStockValue.Add(item.Value())
		stockPrices[item.Key()] = item.PricePerUnit
	}
	buyingPrices := make(map[models.StockKey]decimal.Decimal, len(s.Products))
	for _, p := range s.Products {
		buyingPrices[p.Key()] = p.BuyingPrice
	}

	for _, sale := range s.Sales {
		r.TotalSalesRevenue = r.TotalSalesRevenue.Add(sale.TotalAmount)
		for _, line := range sale.LineItems {
			qty := decimal.NewFromInt(line.Quantity)
			switch line.Kind {
			case models.LineItemProduct:
				price, ok := buyingPrices[line.StockKey()]
				if !ok {
					price = stockPrices[line.StockKey()]
				}
				r.CostOfGoodsSold = r.CostOfGoodsSold.Add(qty.Mul(price))
			case models.LineItemService:
				r.CostOfGoodsSold = r.CostOfGoodsSold.Add(qty.Mul(line.UnitPrice).Mul(serviceCostRatio))
			}
		}
	}

	for _, e := range s.Expenses {
		r.TotalExpenses = r.TotalExpenses.Add(e.Total)
	}

	r.GrossProfit = r.TotalSalesRevenue.Sub(r.CostOfGoodsSold)
	r.NetProfit = r.GrossProfit.Sub(r.TotalExpenses)
	return r
}

type Calculator struct {
	store            interfaces.Store
	serviceCostRatio decimal.Decimal
}

func NewCalculator(store interfaces.Store, serviceCostRatio decimal.Decimal) *Calculator {
	return &Calculator{store: store, serviceCostRatio: serviceCostRatio}
}

// Report reads a consistent snapshot and computes every figure from it.
func (c *Calculator) Report(ctx context.Context) (Report, error) {
	var s Snapshot
	err := c.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		if s.Stock, err = tx.ListStock(ctx); err != nil {
			return apperrors.Storage("list stock", err)
		}
		if s.Products, err = tx.ListProducts(ctx); err != nil {
			return apperrors.Storage("list products", err)
		}
		if s.Sales, err = tx.ListSales(ctx); err != nil {
			return apperrors.Storage("list sales", err)
		}
		if s.Expenses, err = tx.ListExpenses(ctx); err != nil {
			return apperrors.Storage("list expenses", err)
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	return Compute(s, c.serviceCostRatio), nil
}

func (c *Calculator) TotalStockValue(ctx context.Context) (decimal.Decimal, error) {
	r, err := c.Report(ctx)
	return r.TotalStockValue, err
}

func (c *Calculator) GrossProfit(ctx context.Context) (decimal.Decimal, error) {
	r, err := c.Report(ctx)
	return r.GrossProfit, err
}

func (c *Calculator) NetProfit(ctx context.Context) (decimal.Decimal, error) {
	r, err := c.Report(ctx)
	return r.NetProfit, err
}
