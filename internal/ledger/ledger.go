package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/events"
	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/metrics"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
	eventmodels "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models/events"
)

// Ledger owns the operating account and its append-only transaction log.
//
// By default a withdrawal is applied even when it takes the balance below
// zero. WithOverdraftRejection turns that into ErrInsufficientFunds.
type Ledger struct {
	store           interfaces.Store
	rejectOverdraft bool
	notifier        *events.Notifier
	log             *logrus.Logger
	now             func() time.Time
}

type Option func(*Ledger)

func WithOverdraftRejection(reject bool) Option {
	return func(l *Ledger) { l.rejectOverdraft = reject }
}

func WithNotifier(n *events.Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

func WithLogger(log *logrus.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a Ledger over the given store.
func NewLedger(store interfaces.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		log:   logrus.StandardLogger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Apply records amount against the account inside tx. A positive amount is a
// deposit, a negative one a withdrawal of its absolute value.
func (l *Ledger) Apply(ctx context.Context, tx interfaces.AccountTx, amount decimal.Decimal, purpose string) (models.Transaction, error) {
	return l.post(ctx, tx, amount, purpose, "")
}

// Reverse appends a transaction negating id. The original entry is never
// touched and can be reversed only once.
func (l *Ledger) Reverse(ctx context.Context, tx interfaces.AccountTx, id string) (models.Transaction, error) {
	original, err := tx.GetTransaction(ctx, id)
	if err != nil {
		return models.Transaction{}, apperrors.Storage("get transaction", err)
	}
	if original.ReversalOf != "" {
		return models.Transaction{}, apperrors.InvalidState("transaction %s is a reversal and cannot be reversed", id)
	}

	reversed, err := tx.HasReversal(ctx, id)
	if err != nil {
		return models.Transaction{}, apperrors.Storage("check reversal", err)
	}
	if reversed {
		return models.Transaction{}, apperrors.InvalidState("transaction %s is already reversed", id)
	}

	return l.post(ctx, tx, original.SignedAmount().Neg(), "reversal of "+id, id)
}

func (l *Ledger) post(ctx context.Context, tx interfaces.AccountTx, amount decimal.Decimal, purpose, reversalOf string) (models.Transaction, error) {
	purpose = strings.TrimSpace(purpose)
	if amount.IsZero() {
		return models.Transaction{}, apperrors.Invalid("amount", "must be non-zero")
	}
	if purpose == "" {
		return models.Transaction{}, apperrors.Invalid("purpose", "is required")
	}
	if err := models.CheckMoneyScale("amount", amount); err != nil {
		return models.Transaction{}, err
	}

	account, err := tx.LockAccount(ctx)
	if err != nil {
		return models.Transaction{}, apperrors.Storage("lock account", err)
	}

	balance := account.Balance.Add(amount)
	if l.rejectOverdraft && amount.IsNegative() && balance.IsNegative() {
		return models.Transaction{}, fmt.Errorf("%w: balance %s cannot cover %s", apperrors.ErrInsufficientFunds, account.Balance, amount.Abs())
	}

	entry := models.Transaction{
		ID:         uuid.New().String(),
		Kind:       models.TransactionDeposit,
		Amount:     amount.Abs(),
		Purpose:    purpose,
		ReversalOf: reversalOf,
		CreatedAt:  l.now(),
	}
	if amount.IsNegative() {
		entry.Kind = models.TransactionWithdraw
	}

	if err := tx.InsertTransaction(ctx, entry); err != nil {
		return models.Transaction{}, apperrors.Storage("insert transaction", err)
	}
	if err := tx.UpdateBalance(ctx, balance); err != nil {
		return models.Transaction{}, apperrors.Storage("update balance", err)
	}
	return entry, nil
}

// CurrentBalance returns the committed balance.
func (l *Ledger) CurrentBalance(ctx context.Context) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.store.View(ctx, func(tx interfaces.Tx) error {
		account, err := tx.GetAccount(ctx)
		if err != nil {
			return apperrors.Storage("get account", err)
		}
		balance = account.Balance
		return nil
	})
	return balance, err
}

// Adjust applies a manual correction and returns the resulting balance.
func (l *Ledger) Adjust(ctx context.Context, amount decimal.Decimal, purpose string) (models.Transaction, decimal.Decimal, error) {
	start := time.Now()
	var (
		entry   models.Transaction
		balance decimal.Decimal
	)
	err := l.store.WithTx(ctx, func(tx interfaces.Tx) error {
		var err error
		entry, err = l.Apply(ctx, tx, amount, purpose)
		if err != nil {
			return err
		}
		account, err := tx.GetAccount(ctx)
		if err != nil {
			return apperrors.Storage("get account", err)
		}
		balance = account.Balance
		return nil
	})
	metrics.ObserveOperation("adjust_balance", start, err)
	if err != nil {
		return models.Transaction{}, decimal.Zero, err
	}

	l.log.WithFields(logrus.Fields{
		"transaction_id": entry.ID,
		"amount":         amount.String(),
		"balance":        balance.String(),
	}).Info("balance adjusted")
	l.emitAdjusted(ctx, entry, amount, balance)
	return entry, balance, nil
}

// SetBalance moves the balance to target by appending the difference as an
// adjustment. Nothing is recorded when the balance already equals target.
func (l *Ledger) SetBalance(ctx context.Context, target decimal.Decimal, purpose string) (decimal.Decimal, error) {
	start := time.Now()
	var (
		entry   models.Transaction
		delta   decimal.Decimal
		applied bool
	)
	err := l.store.WithTx(ctx, func(tx interfaces.Tx) error {
		account, err := tx.LockAccount(ctx)
		if err != nil {
			return apperrors.Storage("lock account", err)
		}
		delta = target.Sub(account.Balance)
		if delta.IsZero() {
			return nil
		}
		entry, err = l.Apply(ctx, tx, delta, purpose)
		applied = err == nil
		return err
	})
	metrics.ObserveOperation("set_balance", start, err)
	if err != nil {
		return decimal.Zero, err
	}
	if applied {
		l.emitAdjusted(ctx, entry, delta, target)
	}
	return target, nil
}

func (l *Ledger) emitAdjusted(ctx context.Context, entry models.Transaction, amount, balance decimal.Decimal) {
	l.notifier.Emit(ctx, eventmodels.TopicBalanceAdjusted, entry.ID, eventmodels.BalanceAdjusted{
		TransactionID: entry.ID,
		Amount:        amount,
		Purpose:       entry.Purpose,
		NewBalance:    balance,
		OccurredAt:    entry.CreatedAt,
	})
}

// Transactions returns the full log in insertion order.
func (l *Ledger) Transactions(ctx context.Context) ([]models.Transaction, error) {
	var out []models.Transaction
	err := l.store.View(ctx, func(tx interfaces.Tx) error {
		var err error
		out, err = tx.ListTransactions(ctx)
		return apperrors.Storage("list transactions", err)
	})
	if err != nil {
		return []models.Transaction{}, err
	}
	return out, nil
}

// Reconcile recomputes the balance from the transaction log and fails with
// ErrInvalidState if it differs from the stored balance.
func (l *Ledger) Reconcile(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := l.store.View(ctx, func(tx interfaces.Tx) error {
		account, err := tx.GetAccount(ctx)
		if err != nil {
			return apperrors.Storage("get account", err)
		}
		entries, err := tx.ListTransactions(ctx)
		if err != nil {
			return apperrors.Storage("list transactions", err)
		}
		sum = decimal.Zero
		for _, entry := range entries {
			sum = sum.Add(entry.SignedAmount())
		}
		if !sum.Equal(account.Balance) {
			return apperrors.InvalidState("balance %s does not match transaction log total %s", account.Balance, sum)
		}
		return nil
	})
	return sum, err
}
