// Package inventory owns the per-product stock rows and the product and
// service catalog.
package inventory

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/metrics"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
)

// Tracker keeps stock quantities non-negative. Methods taking a tx run
// inside a caller's transaction; the others open their own.
type Tracker struct {
	store interfaces.Store
	log   *logrus.Logger
	now   func() time.Time
}

func NewTracker(store interfaces.Store, log *logrus.Logger) *Tracker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Tracker{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func validateKey(key models.StockKey) error {
	if strings.TrimSpace(key.ProductName) == "" {
		return apperrors.Invalid("product_name", "is required")
	}
	if strings.TrimSpace(key.ProductType) == "" {
		return apperrors.Invalid("product_type", "is required")
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return apperrors.Invalid("price_per_unit", "must not be negative")
	}
	return models.CheckMoneyScale("price_per_unit", price)
}

// addQuantity returns current + delta, refusing to wrap past MaxInt64.
// current is never negative so the subtraction cannot overflow.
func addQuantity(current, delta int64) (int64, error) {
	if delta > math.MaxInt64-current {
		return 0, apperrors.Invalid("quantity", "exceeds the largest storable quantity")
	}
	return current + delta, nil
}

// Add receives a new batch: the quantity grows by delta and the unit price
// is replaced. A missing row is created.
func (t *Tracker) Add(ctx context.Context, tx interfaces.StockTx, key models.StockKey, delta int64, price decimal.Decimal) (models.StockItem, error) {
	key = key.Trimmed()
	if err := validateKey(key); err != nil {
		return models.StockItem{}, err
	}
	if delta <= 0 {
		return models.StockItem{}, apperrors.Invalid("quantity", "must be positive")
	}
	if err := validatePrice(price); err != nil {
		return models.StockItem{}, err
	}

	item, err := t.lockOrCreate(ctx, tx, key, price)
	if err != nil {
		return models.StockItem{}, err
	}
	if item.Quantity, err = addQuantity(item.Quantity, delta); err != nil {
		return models.StockItem{}, err
	}
	item.PricePerUnit = price
	return t.save(ctx, tx, item)
}

// Set overwrites quantity and price, creating the row if needed.
func (t *Tracker) Set(ctx context.Context, tx interfaces.StockTx, key models.StockKey, quantity int64, price decimal.Decimal) (models.StockItem, error) {
	key = key.Trimmed()
	if err := validateKey(key); err != nil {
		return models.StockItem{}, err
	}
	if quantity < 0 {
		return models.StockItem{}, apperrors.Invalid("quantity", "must not be negative")
	}
	if err := validatePrice(price); err != nil {
		return models.StockItem{}, err
	}

	item, err := t.lockOrCreate(ctx, tx, key, price)
	if err != nil {
		return models.StockItem{}, err
	}
	item.Quantity = quantity
	item.PricePerUnit = price
	return t.save(ctx, tx, item)
}

// Increment returns amount units to an existing row without touching its
// price. When the row has been removed it is recreated at fallbackPrice.
func (t *Tracker) Increment(ctx context.Context, tx interfaces.StockTx, key models.StockKey, amount int64, fallbackPrice decimal.Decimal) (models.StockItem, error) {
	if amount <= 0 {
		return models.StockItem{}, apperrors.Invalid("quantity", "must be positive")
	}
	item, err := t.lockOrCreate(ctx, tx, key, fallbackPrice)
	if err != nil {
		return models.StockItem{}, err
	}
	if item.Quantity, err = addQuantity(item.Quantity, amount); err != nil {
		return models.StockItem{}, err
	}
	return t.save(ctx, tx, item)
}

// Check fails with an InsufficientStockError if the row cannot cover amount.
// It locks the row so the answer holds until tx ends.
func (t *Tracker) Check(ctx context.Context, tx interfaces.StockTx, key models.StockKey, amount int64) (models.StockItem, error) {
	item, err := tx.LockStock(ctx, key)
	if err != nil {
		return models.StockItem{}, apperrors.Storage("lock stock", err)
	}
	if amount > item.Quantity {
		return item, &apperrors.InsufficientStockError{Item: key.String(), Requested: amount, Available: item.Quantity}
	}
	return item, nil
}

// Decrement removes amount units. It never takes the quantity below zero.
func (t *Tracker) Decrement(ctx context.Context, tx interfaces.StockTx, key models.StockKey, amount int64) (models.StockItem, error) {
	if amount <= 0 {
		return models.StockItem{}, apperrors.Invalid("quantity", "must be positive")
	}
	item, err := t.Check(ctx, tx, key, amount)
	if err != nil {
		return models.StockItem{}, err
	}
	item.Quantity -= amount
	return t.save(ctx, tx, item)
}

func (t *Tracker) Remove(ctx context.Context, tx interfaces.StockTx, key models.StockKey) error {
	if err := tx.DeleteStock(ctx, key); err != nil {
		return apperrors.Storage("delete stock", err)
	}
	return nil
}

// lockOrCreate locks the row for key, first inserting an empty one at price
// if it does not exist yet.
func (t *Tracker) lockOrCreate(ctx context.Context, tx interfaces.StockTx, key models.StockKey, price decimal.Decimal) (models.StockItem, error) {
	empty := models.StockItem{
		ProductName:  key.ProductName,
		ProductType:  key.ProductType,
		PricePerUnit: price,
		UpdatedAt:    t.now(),
	}
	if err := tx.EnsureStock(ctx, empty); err != nil {
		return models.StockItem{}, apperrors.Storage("ensure stock", err)
	}
	item, err := tx.LockStock(ctx, key)
	if err != nil {
		return models.StockItem{}, apperrors.Storage("lock stock", err)
	}
	return item, nil
}

func (t *Tracker) save(ctx context.Context, tx interfaces.StockTx, item models.StockItem) (models.StockItem, error) {
	item.UpdatedAt = t.now()
	if err := tx.SaveStock(ctx, item); err != nil {
		return models.StockItem{}, apperrors.Storage("save stock", err)
	}
	return item, nil
}

// AddStock runs Add in its own transaction.
func (t *Tracker) AddStock(ctx context.Context, key models.StockKey, delta int64, price decimal.Decimal) (models.StockItem, error) {
	return t.run(ctx, "add_stock", func(tx interfaces.Tx) (models.StockItem, error) {
		return t.Add(ctx, tx, key, delta, price)
	})
}

// SetStock runs Set in its own transaction.
func (t *Tracker) SetStock(ctx context.Context, key models.StockKey, quantity int64, price decimal.Decimal) (models.StockItem, error) {
	return t.run(ctx, "set_stock", func(tx interfaces.Tx) (models.StockItem, error) {
		return t.Set(ctx, tx, key, quantity, price)
	})
}

// IncrementOne adds a single unit to an existing row.
func (t *Tracker) IncrementOne(ctx context.Context, key models.StockKey) (models.StockItem, error) {
	key = key.Trimmed()
	return t.run(ctx, "increment_stock", func(tx interfaces.Tx) (models.StockItem, error) {
		item, err := tx.LockStock(ctx, key)
		if err != nil {
			return models.StockItem{}, apperrors.Storage("lock stock", err)
		}
		if item.Quantity, err = addQuantity(item.Quantity, 1); err != nil {
			return models.StockItem{}, err
		}
		return t.save(ctx, tx, item)
	})
}

// DecrementOne removes a single unit; at zero it fails with
// ErrInsufficientStock.
func (t *Tracker) DecrementOne(ctx context.Context, key models.StockKey) (models.StockItem, error) {
	key = key.Trimmed()
	return t.run(ctx, "decrement_stock", func(tx interfaces.Tx) (models.StockItem, error) {
		return t.Decrement(ctx, tx, key, 1)
	})
}

// RemoveStock deletes the row, failing with ErrNotFound if it is absent.
func (t *Tracker) RemoveStock(ctx context.Context, key models.StockKey) error {
	key = key.Trimmed()
	_, err := t.run(ctx, "remove_stock", func(tx interfaces.Tx) (models.StockItem, error) {
		return models.StockItem{}, t.Remove(ctx, tx, key)
	})
	return err
}

func (t *Tracker) Get(ctx context.Context, key models.StockKey) (models.StockItem, error) {
	key = key.Trimmed()
	var item models.StockItem
	err := t.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		item, err = tx.GetStock(ctx, key)
		return apperrors.Storage("get stock", err)
	})
	return item, err
}

func (t *Tracker) List(ctx context.Context) ([]models.StockItem, error) {
	var items []models.StockItem
	err := t.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		items, err = tx.ListStock(ctx)
		return apperrors.Storage("list stock", err)
	})
	return items, err
}

func (t *Tracker) run(ctx context.Context, op string, fn func(tx interfaces.Tx) (models.StockItem, error)) (models.StockItem, error) {
	start := time.Now()
	var item models.StockItem
	err := t.store.WithTx(ctx, func(tx interfaces.Tx) error {
		var err error
		item, err = fn(tx)
		return err
	})
	metrics.ObserveOperation(op, start, err)
	if err != nil {
		return models.StockItem{}, err
	}
	t.log.WithFields(logrus.Fields{
		"operation": op,
		"product":   item.Key().String(),
		"quantity":  item.Quantity,
	}).Debug("stock updated")
	return item, nil
}
