// Package programarea owns the named budget buckets donations are
// earmarked against. The set of areas is fixed at start-up by Seed.
package programarea

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
)

type Allocator struct {
	store interfaces.Store
	now   func() time.Time
}

func NewAllocator(store interfaces.Store) *Allocator {
	return &Allocator{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Seed makes sure every named area exists. Existing balances are kept.
func (a *Allocator) Seed(ctx context.Context, names []string) error {
	return a.store.WithTx(ctx, func(tx interfaces.Tx) error {
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if err := tx.EnsureProgramArea(ctx, name); err != nil {
				return apperrors.Storage("ensure program area", err)
			}
		}
		return nil
	})
}

// Lock fetches the area and holds its row for the rest of tx. Unknown names
// fail with ErrNotFound.
func (a *Allocator) Lock(ctx context.Context, tx interfaces.ProgramAreaTx, name string) (models.ProgramArea, error) {
	area, err := tx.LockProgramArea(ctx, name)
	if err != nil {
		return models.ProgramArea{}, apperrors.Storage("lock program area", err)
	}
	return area, nil
}

// Credit adds amount to the area balance.
func (a *Allocator) Credit(ctx context.Context, tx interfaces.ProgramAreaTx, name string, amount decimal.Decimal) (models.ProgramArea, error) {
	return a.move(ctx, tx, name, amount)
}

// Debit takes amount back out of the area balance.
func (a *Allocator) Debit(ctx context.Context, tx interfaces.ProgramAreaTx, name string, amount decimal.Decimal) (models.ProgramArea, error) {
	return a.move(ctx, tx, name, amount.Neg())
}

func (a *Allocator) move(ctx context.Context, tx interfaces.ProgramAreaTx, name string, amount decimal.Decimal) (models.ProgramArea, error) {
	area, err := a.Lock(ctx, tx, name)
	if err != nil {
		return models.ProgramArea{}, err
	}
	area.Balance = area.Balance.Add(amount)
	area.UpdatedAt = a.now()
	if err := tx.SaveProgramArea(ctx, area); err != nil {
		return models.ProgramArea{}, apperrors.Storage("save program area", err)
	}
	return area, nil
}

// SetBudget replaces the planned budget of an area. It never changes the
// balance.
func (a *Allocator) SetBudget(ctx context.Context, name string, budget decimal.Decimal) (models.ProgramArea, error) {
	if budget.IsNegative() {
		return models.ProgramArea{}, apperrors.Invalid("budget", "must not be negative")
	}
	if err := models.CheckMoneyScale("budget", budget); err != nil {
		return models.ProgramArea{}, err
	}
	var area models.ProgramArea
	err := a.store.WithTx(ctx, func(tx interfaces.Tx) error {
		var err error
		area, err = a.Lock(ctx, tx, name)
		if err != nil {
			return err
		}
		area.Budget = budget
		area.UpdatedAt = a.now()
		return apperrors.Storage("save program area", tx.SaveProgramArea(ctx, area))
	})
	if err != nil {
		return models.ProgramArea{}, err
	}
	return area, nil
}

func (a *Allocator) Get(ctx context.Context, name string) (models.ProgramArea, error) {
	var area models.ProgramArea
	err := a.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		area, err = tx.GetProgramArea(ctx, name)
		return apperrors.Storage("get program area", err)
	})
	return area, err
}

func (a *Allocator) List(ctx context.Context) ([]models.ProgramArea, error) {
	var out []models.ProgramArea
	err := a.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		out, err = tx.ListProgramAreas(ctx)
		return apperrors.Storage("list program areas", err)
	})
	return out, err
}
