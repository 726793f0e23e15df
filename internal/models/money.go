package models

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
)

// MoneyScale is the number of decimal places every stored amount keeps.
// It matches the NUMERIC(20, 4) columns.
const MoneyScale = 4

// CheckMoneyScale fails with a ValidationError when d carries more decimal
// places than MoneyScale. Trailing zeros are fine.
func CheckMoneyScale(field string, d decimal.Decimal) error {
	if !d.Equal(d.Round(MoneyScale)) {
		return apperrors.Invalid(field, fmt.Sprintf("must have at most %d decimal places", MoneyScale))
	}
	return nil
}
