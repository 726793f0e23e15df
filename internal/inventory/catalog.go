package inventory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
)

// Catalog holds product and service definitions. Product buying prices are
// what cost of goods sold is computed from.
type Catalog struct {
	store interfaces.Store
}

func NewCatalog(store interfaces.Store) *Catalog {
	return &Catalog{store: store}
}

// AddProduct creates or replaces a product definition.
func (c *Catalog) AddProduct(ctx context.Context, p models.Product) (models.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Type = strings.TrimSpace(p.Type)
	if err := validateKey(p.Key()); err != nil {
		return models.Product{}, err
	}
	if p.BuyingPrice.IsNegative() {
		return models.Product{}, apperrors.Invalid("buying_price", "must not be negative")
	}
	if p.SellingPrice.IsNegative() {
		return models.Product{}, apperrors.Invalid("selling_price", "must not be negative")
	}
	if err := models.CheckMoneyScale("buying_price", p.BuyingPrice); err != nil {
		return models.Product{}, err
	}
	if err := models.CheckMoneyScale("selling_price", p.SellingPrice); err != nil {
		return models.Product{}, err
	}

	err := c.store.WithTx(ctx, func(tx interfaces.Tx) error {
		return apperrors.Storage("save product", tx.SaveProduct(ctx, p))
	})
	if err != nil {
		return models.Product{}, err
	}
	return p, nil
}

func (c *Catalog) RemoveProduct(ctx context.Context, key models.StockKey) error {
	return c.store.WithTx(ctx, func(tx interfaces.Tx) error {
		return apperrors.Storage("delete product", tx.DeleteProduct(ctx, key))
	})
}

func (c *Catalog) ListProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	err := c.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		out, err = tx.ListProducts(ctx)
		return apperrors.Storage("list products", err)
	})
	return out, err
}

func (c *Catalog) AddService(ctx context.Context, name, description string, price decimal.Decimal) (models.Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Service{}, apperrors.Invalid("name", "is required")
	}
	if price.IsNegative() {
		return models.Service{}, apperrors.Invalid("price", "must not be negative")
	}
	if err := models.CheckMoneyScale("price", price); err != nil {
		return models.Service{}, err
	}

	s := models.Service{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Price:       price,
	}
	err := c.store.WithTx(ctx, func(tx interfaces.Tx) error {
		return apperrors.Storage("insert service", tx.InsertService(ctx, s))
	})
	if err != nil {
		return models.Service{}, err
	}
	return s, nil
}

func (c *Catalog) ListServices(ctx context.Context) ([]models.Service, error) {
	var out []models.Service
	err := c.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		out, err = tx.ListServices(ctx)
		return apperrors.Storage("list services", err)
	})
	return out, err
}
