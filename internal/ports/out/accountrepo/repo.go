package accountrepo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

// Deposit is one append-only row in the ledger's deposit log.
type Deposit struct {
	Username domain.Username
	Amount   decimal.Decimal
	At       time.Time
}

// Repository provides access to persisted ledger accounts.
//
// Adjust is the ledger's only balance mutation. Implementations must make
// the read-modify-write a single critical section per username: two
// concurrent adjustments of the same account never interleave, so a debit
// can never pass its balance check against a stale read. Adjustments of
// different accounts are independent and may proceed in parallel.
type Repository interface {
	Create(ctx context.Context, a domain.Account) error
	Get(ctx context.Context, username domain.Username) (domain.Account, error)

	// Adjust applies delta (positive credit, negative debit) and returns
	// the new balance. A debit whose result would be negative is rejected
	// with ErrInsufficientFunds and leaves the stored balance unchanged.
	// The stored balance is kept at two-decimal precision.
	Adjust(ctx context.Context, username domain.Username, delta decimal.Decimal) (decimal.Decimal, error)

	AppendDeposit(ctx context.Context, d Deposit) error
}
