package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money values are exact decimals. They are persisted and rendered as strings
// with exactly two fractional digits; arithmetic never goes through binary
// floating point.

// FormatAmount renders an amount with two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ParseAmount parses a decimal amount string.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// RoundAmount rounds to two fractional digits, the precision every store
// persists.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
