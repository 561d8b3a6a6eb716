package domain

import "github.com/shopspring/decimal"

// Account is a ledger account. Balance is never negative: every debit is
// conditional on the result staying >= 0.
type Account struct {
	Username Username
	Balance  decimal.Decimal
}
