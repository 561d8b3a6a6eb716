package ledgersvc

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrInsufficientFunds indicates the ledger rejected a debit whose
	// result would have been negative; no balance changed.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnauthorized indicates the ledger rejected the forwarded token.
	ErrUnauthorized = errors.New("unauthorized")
)

// Client talks to the account ledger over its published interface. Calls
// act on behalf of the token's subject: the ledger enforces that the
// subject matches the account being read or adjusted.
type Client interface {
	Balance(ctx context.Context, callerToken string, username domain.Username) (decimal.Decimal, error)

	// Adjust applies delta to the account, atomically rejecting debits
	// that would go negative. idempotencyKey ties the adjustment to one
	// settlement attempt.
	Adjust(ctx context.Context, callerToken string, username domain.Username, delta decimal.Decimal, idempotencyKey string) (decimal.Decimal, error)

	// CreateAccount provisions an account with an opening balance. Used
	// by the identity service at registration.
	CreateAccount(ctx context.Context, callerToken string, username domain.Username, opening decimal.Decimal) error
}
