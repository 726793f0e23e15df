// Package sales records multi-line sales against stock and the ledger as
// one atomic unit.
package sales

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/events"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/inventory"
	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/ledger"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/metrics"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
	eventmodels "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models/events"
)

// RecordSale is the command for Record. Line and sale totals are optional;
// when given they must match quantity * unit price.
type RecordSale struct {
	ClientName  string
	Items       []models.LineItem
	TotalAmount decimal.Decimal
}

type Processor struct {
	store     interfaces.Store
	ledger    *ledger.Ledger
	inventory *inventory.Tracker
	notifier  *events.Notifier
	log       *logrus.Logger
	now       func() time.Time
}

func NewProcessor(store interfaces.Store, l *ledger.Ledger, tracker *inventory.Tracker, notifier *events.Notifier, log *logrus.Logger) *Processor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{
		store:     store,
		ledger:    l,
		inventory: tracker,
		notifier:  notifier,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Record stores the sale, deposits its total and takes every product line
// out of stock. Stock is checked for all lines before anything is written; if
// any line cannot be covered nothing changes.
func (p *Processor) Record(ctx context.Context, cmd RecordSale) (models.Sale, error) {
	start := time.Now()
	sale, demand, err := p.prepare(cmd)
	if err == nil {
		err = p.store.WithTx(ctx, func(tx interfaces.Tx) error {
			keys := sortedKeys(demand)
			for _, key := range keys {
				if _, err := p.inventory.Check(ctx, tx, key, demand[key]); err != nil {
					return err
				}
			}

			entry, err := p.ledger.Apply(ctx, tx, sale.TotalAmount, "sale to "+sale.ClientName)
			if err != nil {
				return err
			}
			sale.TransactionID = entry.ID

			if err := tx.InsertSale(ctx, sale); err != nil {
				return apperrors.Storage("insert sale", err)
			}

			for _, key := range keys {
				if _, err := p.inventory.Decrement(ctx, tx, key, demand[key]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	metrics.ObserveOperation("record_sale", start, err)
	if err != nil {
		return models.Sale{}, err
	}

	p.log.WithFields(logrus.Fields{
		"sale_id": sale.ID,
		"client":  sale.ClientName,
		"total":   sale.TotalAmount.String(),
	}).Info("sale recorded")
	p.notifier.Emit(ctx, eventmodels.TopicSaleRecorded, sale.ID, eventmodels.SaleRecorded{
		SaleID:      sale.ID,
		ClientName:  sale.ClientName,
		TotalAmount: sale.TotalAmount,
		LineCount:   len(sale.LineItems),
		OccurredAt:  sale.CreatedAt,
	})
	return sale, nil
}

// Delete removes a sale and undoes its effects: the deposit is reversed and
// every product line is returned to stock.
func (p *Processor) Delete(ctx context.Context, id string) error {
	start := time.Now()
	var sale models.Sale
	err := p.store.WithTx(ctx, func(tx interfaces.Tx) error {
		var err error
		sale, err = tx.GetSale(ctx, id)
		if err != nil {
			return apperrors.Storage("get sale", err)
		}

		demand, prices, err := productDemand(sale.LineItems)
		if err != nil {
			return err
		}
		for _, key := range sortedKeys(demand) {
			price, err := restockPrice(ctx, tx, key, prices[key])
			if err != nil {
				return err
			}
			if _, err := p.inventory.Increment(ctx, tx, key, demand[key], price); err != nil {
				return err
			}
		}

		if _, err := p.ledger.Reverse(ctx, tx, sale.TransactionID); err != nil {
			return err
		}
		return apperrors.Storage("delete sale", tx.DeleteSale(ctx, id))
	})
	metrics.ObserveOperation("delete_sale", start, err)
	if err != nil {
		return err
	}

	p.log.WithField("sale_id", id).Info("sale deleted")
	p.notifier.Emit(ctx, eventmodels.TopicSaleDeleted, id, eventmodels.SaleDeleted{
		SaleID:      id,
		TotalAmount: sale.TotalAmount,
		OccurredAt:  p.now(),
	})
	return nil
}

func (p *Processor) Get(ctx context.Context, id string) (models.Sale, error) {
	var sale models.Sale
	err := p.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		sale, err = tx.GetSale(ctx, id)
		return apperrors.Storage("get sale", err)
	})
	return sale, err
}

func (p *Processor) List(ctx context.Context) ([]models.Sale, error) {
	var out []models.Sale
	err := p.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		out, err = tx.ListSales(ctx)
		return apperrors.Storage("list sales", err)
	})
	return out, err
}

// prepare validates cmd and builds the immutable sale snapshot together with
// the total quantity needed per stock row.
func (p *Processor) prepare(cmd RecordSale) (models.Sale, map[models.StockKey]int64, error) {
	client := strings.TrimSpace(cmd.ClientName)
	if client == "" {
		return models.Sale{}, nil, apperrors.Invalid("client_name", "is required")
	}
	if len(cmd.Items) == 0 {
		return models.Sale{}, nil, apperrors.Invalid("items", "at least one line item is required")
	}

	items := make([]models.LineItem, 0, len(cmd.Items))
	total := decimal.Zero
	for i, item := range cmd.Items {
		field := fmt.Sprintf("items[%d]", i)
		item.Name = strings.TrimSpace(item.Name)
		item.ProductType = strings.TrimSpace(item.ProductType)
		switch {
		case item.Name == "":
			return models.Sale{}, nil, apperrors.Invalid(field+".name", "is required")
		case !item.Kind.Valid():
			return models.Sale{}, nil, apperrors.Invalid(field+".kind", "must be product or service")
		case item.Kind == models.LineItemProduct && item.ProductType == "":
			return models.Sale{}, nil, apperrors.Invalid(field+".product_type", "is required for product lines")
		case item.Quantity <= 0:
			return models.Sale{}, nil, apperrors.Invalid(field+".quantity", "must be positive")
		case !item.UnitPrice.IsPositive():
			return models.Sale{}, nil, apperrors.Invalid(field+".unit_price", "must be positive")
		}
		if err := models.CheckMoneyScale(field+".unit_price", item.UnitPrice); err != nil {
			return models.Sale{}, nil, err
		}

		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
		if !item.Total.IsZero() && !item.Total.Equal(lineTotal) {
			return models.Sale{}, nil, apperrors.Invalid(field+".total", fmt.Sprintf("expected %s", lineTotal))
		}
		item.Total = lineTotal
		if item.Kind == models.LineItemService {
			item.ProductType = ""
		}
		total = total.Add(lineTotal)
		items = append(items, item)
	}

	if !cmd.TotalAmount.IsZero() && !cmd.TotalAmount.Equal(total) {
		return models.Sale{}, nil, apperrors.Invalid("total_amount", fmt.Sprintf("expected %s", total))
	}

	demand, _, err := productDemand(items)
	if err != nil {
		return models.Sale{}, nil, err
	}
	return models.Sale{
		ID:          uuid.New().String(),
		ClientName:  client,
		LineItems:   items,
		TotalAmount: total,
		CreatedAt:   p.now(),
	}, demand, nil
}

// productDemand sums product line quantities per stock row. Prices holds the
// unit price of the first line seen for each row.
func productDemand(items []models.LineItem) (map[models.StockKey]int64, map[models.StockKey]decimal.Decimal, error) {
	demand := make(map[models.StockKey]int64)
	prices := make(map[models.StockKey]decimal.Decimal)
	for _, item := range items {
		if item.Kind != models.LineItemProduct {
			continue
		}
		key := item.StockKey()
		if _, seen := prices[key]; !seen {
			prices[key] = item.UnitPrice
		}
		if item.Quantity > math.MaxInt64-demand[key] {
			return nil, nil, apperrors.Invalid("items", fmt.Sprintf("total quantity of %s is too large", key))
		}
		demand[key] += item.Quantity
	}
	return demand, prices, nil
}

// restockPrice is the price a removed stock row is recreated at when a sale
// is undone: the catalog buying price if the product is defined, otherwise
// the unit price the line was sold at.
func restockPrice(ctx context.Context, tx interfaces.CatalogTx, key models.StockKey, soldAt decimal.Decimal) (decimal.Decimal, error) {
	product, err := tx.GetProduct(ctx, key)
	switch {
	case err == nil:
		return product.BuyingPrice, nil
	case errors.Is(err, apperrors.ErrNotFound):
		return soldAt, nil
	default:
		return decimal.Decimal{}, apperrors.Storage("get product", err)
	}
}

// sortedKeys gives the lock order for stock rows. Every operation locks rows
// in this order, so two sales over the same products cannot deadlock.
func sortedKeys(demand map[models.StockKey]int64) []models.StockKey {
	keys := make([]models.StockKey, 0, len(demand))
	for key := range demand {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b models.StockKey) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
	return keys
}
