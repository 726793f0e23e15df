package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	TransactionDeposit  TransactionKind = "deposit"
	TransactionWithdraw TransactionKind = "withdraw"
)

// Transaction is one append-only movement of cash on the operating account.
// Amount is always positive; Kind carries the sign.
type Transaction struct {
	ID         string          `json:"id"`
	Kind       TransactionKind `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Purpose    string          `json:"purpose"`
	ReversalOf string          `json:"reversal_of,omitempty"` // id of the transaction this one compensates
	CreatedAt  time.Time       `json:"created_at"`
}

// SignedAmount returns the amount as it applies to the balance.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Kind == TransactionWithdraw {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Account is the single operating cash account.
type Account struct {
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}
