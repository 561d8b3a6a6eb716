package settlementjournal

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

// State of one settlement attempt.
//
//	pending: attempt recorded, no side effects yet
//	debited: the ledger debit committed
//	booked:  the booking insert committed (terminal success)
//	failed:  aborted before any debit (terminal, no side effects)
//
// An attempt left in debited is the partial-failure window of the
// settlement sequence: money moved but no booking exists. It is surfaced
// for reconciliation and never retried automatically, since a blind retry
// could double-debit.
type State string

const (
	StatePending State = "pending"
	StateDebited State = "debited"
	StateBooked  State = "booked"
	StateFailed  State = "failed"
)

var (
	// ErrNotFound indicates no attempt exists for the key.
	ErrNotFound = errors.New("settlement attempt not found")

	// ErrAlreadyExists indicates the idempotency key was already used.
	ErrAlreadyExists = errors.New("settlement attempt already exists")
)

// Attempt is one reserve attempt, identified by a coordinator-generated
// idempotency key shared by the debit and the booking insert.
type Attempt struct {
	Key       string
	Renter    domain.Username
	Driver    domain.Username
	ListingID domain.ListingID
	Amount    decimal.Decimal
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Journal persists settlement attempts in the coordinator's own store.
type Journal interface {
	Begin(ctx context.Context, a Attempt) error
	SetState(ctx context.Context, key string, s State, at time.Time) error
	Get(ctx context.Context, key string) (Attempt, error)

	// StuckDebits returns attempts in StateDebited last updated at or
	// before cutoff: committed debits with no matching booking.
	StuckDebits(ctx context.Context, cutoff time.Time) ([]Attempt, error)
}
