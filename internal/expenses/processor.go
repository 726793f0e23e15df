package expenses

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/events"
	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/ledger"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/metrics"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
	eventmodels "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models/events"
)

type RecordExpense struct {
	Date        time.Time
	Person      string
	Description string
	Cost        decimal.Decimal
	Quantity    int64
}

type Processor struct {
	store    interfaces.Store
	ledger   *ledger.Ledger
	notifier *events.Notifier
	log      *logrus.Logger
	now      func() time.Time
}

func NewProcessor(store interfaces.Store, l *ledger.Ledger, notifier *events.Notifier, log *logrus.Logger) *Processor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{
		store:    store,
		ledger:   l,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Record withdraws cost * quantity from the account and stores the expense.
func (p *Processor) Record(ctx context.Context, cmd RecordExpense) (models.Expense, error) {
	start := time.Now()
	expense, err := p.prepare(cmd)
	if err == nil {
		err = p.store.WithTx(ctx, func(tx interfaces.Tx) error {
			entry, err := p.ledger.Apply(ctx, tx, expense.Total.Neg(), expense.Description)
			if err != nil {
				return err
			}
			expense.TransactionID = entry.ID
			return apperrors.Storage("insert expense", tx.InsertExpense(ctx, expense))
		})
	}
	metrics.ObserveOperation("record_expense", start, err)
	if err != nil {
		return models.Expense{}, err
	}

	p.log.WithFields(logrus.Fields{
		"expense_id": expense.ID,
		"total":      expense.Total.String(),
	}).Info("expense recorded")
	p.notifier.Emit(ctx, eventmodels.TopicExpenseRecorded, expense.ID, eventmodels.ExpenseRecorded{
		ExpenseID:   expense.ID,
		Description: expense.Description,
		Total:       expense.Total,
		OccurredAt:  expense.CreatedAt,
	})
	return expense, nil
}

// Delete credits the expense total back with a compensating entry and then
// removes the expense.
func (p *Processor) Delete(ctx context.Context, id string) error {
	start := time.Now()
	var expense models.Expense
	err := p.store.WithTx(ctx, func(tx interfaces.Tx) error {
		var err error
		expense, err = tx.GetExpense(ctx, id)
		if err != nil {
			return apperrors.Storage("get expense", err)
		}
		if _, err := p.ledger.Apply(ctx, tx, expense.Total, "reversal of expense "+id); err != nil {
			return err
		}
		return apperrors.Storage("delete expense", tx.DeleteExpense(ctx, id))
	})
	metrics.ObserveOperation("delete_expense", start, err)
	if err != nil {
		return err
	}

	p.log.WithField("expense_id", id).Info("expense deleted")
	p.notifier.Emit(ctx, eventmodels.TopicExpenseDeleted, id, eventmodels.ExpenseDeleted{
		ExpenseID:  id,
		Total:      expense.Total,
		OccurredAt: p.now(),
	})
	return nil
}

func (p *Processor) Get(ctx context.Context, id string) (models.Expense, error) {
	var expense models.Expense
	err := p.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		expense, err = tx.GetExpense(ctx, id)
		return apperrors.Storage("get expense", err)
	})
	return expense, err
}

func (p *Processor) List(ctx context.Context) ([]models.Expense, error) {
	var out []models.Expense
	err := p.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		out, err = tx.ListExpenses(ctx)
		return apperrors.Storage("list expenses", err)
	})
	return out, err
}

func (p *Processor) prepare(cmd RecordExpense) (models.Expense, error) {
	description := strings.TrimSpace(cmd.Description)
	switch {
	case cmd.Date.IsZero():
		return models.Expense{}, apperrors.Invalid("date", "is required")
	case strings.TrimSpace(cmd.Person) == "":
		return models.Expense{}, apperrors.Invalid("person", "is required")
	case description == "":
		return models.Expense{}, apperrors.Invalid("description", "is required")
	case !cmd.Cost.IsPositive():
		return models.Expense{}, apperrors.Invalid("cost", "must be positive")
	case cmd.Quantity <= 0:
		return models.Expense{}, apperrors.Invalid("quantity", "must be positive")
	}
	if err := models.CheckMoneyScale("cost", cmd.Cost); err != nil {
		return models.Expense{}, err
	}

	return models.Expense{
		ID:          uuid.New().String(),
		Date:        cmd.Date,
		Person:      strings.TrimSpace(cmd.Person),
		Description: description,
		Cost:        cmd.Cost,
		Quantity:    cmd.Quantity,
		Total:       cmd.Cost.Mul(decimal.NewFromInt(cmd.Quantity)),
		CreatedAt:   p.now(),
	}, nil
}
