// Package reservations implements the settlement coordinator: the sequence
// that resolves a listing, debits the renter's funds and records a booking.
//
// The three writes live in independently-owned stores with no cross-store
// transaction, so the sequence is an explicit saga: every attempt carries a
// generated idempotency key recorded in the coordinator's journal, the debit
// is conditional inside the ledger, and a debit that commits without a
// matching booking is surfaced as an internal inconsistency for operators to
// reconcile. Nothing is retried automatically; a blind retry could
// double-debit.
package reservations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
	clockport "github.com/rideway-co/marketplace-api/internal/ports/out/clock"
	"github.com/rideway-co/marketplace-api/internal/ports/out/directorysvc"
	"github.com/rideway-co/marketplace-api/internal/ports/out/events"
	"github.com/rideway-co/marketplace-api/internal/ports/out/ledgersvc"
	"github.com/rideway-co/marketplace-api/internal/ports/out/reputationsvc"
	"github.com/rideway-co/marketplace-api/internal/ports/out/reservationrepo"
	"github.com/rideway-co/marketplace-api/internal/ports/out/settlementjournal"
)

// Settlement outcome labels, as recorded in telemetry.
const (
	OutcomeBooked            = "booked"
	OutcomeNotFound          = "not_found"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeInconsistency     = "internal_inconsistency"
)

// OutcomeRecorder counts terminal reserve outcomes.
type OutcomeRecorder interface {
	Record(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Record(string) {}

type Service struct {
	directory  directorysvc.Client
	ledger     ledgersvc.Client
	bookings   reservationrepo.Repository
	journal    settlementjournal.Journal
	reputation reputationsvc.Client
	clk        clockport.Clock

	publisher events.Publisher
	outcomes  OutcomeRecorder

	newKey func() string
}

func NewService(
	directory directorysvc.Client,
	ledger ledgersvc.Client,
	bookings reservationrepo.Repository,
	journal settlementjournal.Journal,
	reputation reputationsvc.Client,
	clk clockport.Clock,
) *Service {
	return &Service{
		directory:  directory,
		ledger:     ledger,
		bookings:   bookings,
		journal:    journal,
		reputation: reputation,
		clk:        clk,
		publisher:  events.Nop{},
		outcomes:   nopRecorder{},
		newKey:     uuid.NewString,
	}
}

// SetPublisher wires a settlement event publisher (default: discard).
func (s *Service) SetPublisher(p events.Publisher) {
	if p != nil {
		s.publisher = p
	}
}

// SetOutcomeRecorder wires settlement telemetry (default: discard).
func (s *Service) SetOutcomeRecorder(r OutcomeRecorder) {
	if r != nil {
		s.outcomes = r
	}
}

// SetNewKeyForTest overrides idempotency key generation for deterministic
// tests. It should not be used in production code.
func (s *Service) SetNewKeyForTest(fn func() string) {
	if fn != nil {
		s.newKey = fn
	}
}

// Reserve settles a booking for renter against listingID.
//
// The steps run strictly in order, each gating the next:
//
//	resolve listing -> check & debit funds -> record booking
//
// Authentication has already happened at the HTTP boundary; renter is the
// verified token subject and callerToken is forwarded on every
// cross-service call. Failures before the debit have no side effects.
// A failure after the debit committed leaves the journal entry in the
// debited state and returns an internal-inconsistency error: the one case
// this flow cannot recover on its own.
func (s *Service) Reserve(ctx context.Context, renter domain.Username, callerToken string, listingID domain.ListingID) (domain.Reservation, error) {
	if listingID == "" {
		return domain.Reservation{}, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid listing_id",
			Details: map[string]any{"listing_id": "must be non-empty"},
		}
	}

	// Resolve the listing first: never debit against a listing that does
	// not exist.
	listing, err := s.directory.Lookup(ctx, callerToken, listingID)
	if err != nil {
		switch {
		case errors.Is(err, directorysvc.ErrNotFound):
			s.outcomes.Record(OutcomeNotFound)
			return domain.Reservation{}, &Error{Status: 404, Code: "LISTING_NOT_FOUND", Message: "listing not found"}
		case errors.Is(err, directorysvc.ErrUnauthorized):
			return domain.Reservation{}, &Error{Status: 401, Code: "UNAUTHORIZED", Message: "invalid token"}
		default:
			return domain.Reservation{}, err
		}
	}

	now := s.clk.Now()
	attempt := settlementjournal.Attempt{
		Key:       s.newKey(),
		Renter:    renter,
		Driver:    listing.Driver,
		ListingID: listing.ID,
		Amount:    listing.Price,
		State:     settlementjournal.StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.journal.Begin(ctx, attempt); err != nil {
		return domain.Reservation{}, err
	}

	// Funds check. The ledger's conditional debit below is what actually
	// guarantees no overdraft under concurrency; this read only decides
	// the common insufficient-funds case before any write.
	balance, err := s.ledger.Balance(ctx, callerToken, renter)
	if err != nil {
		s.abort(ctx, attempt.Key)
		switch {
		case errors.Is(err, ledgersvc.ErrNotFound):
			s.outcomes.Record(OutcomeNotFound)
			return domain.Reservation{}, &Error{Status: 404, Code: "ACCOUNT_NOT_FOUND", Message: "account not found"}
		case errors.Is(err, ledgersvc.ErrUnauthorized):
			return domain.Reservation{}, &Error{Status: 401, Code: "UNAUTHORIZED", Message: "invalid token"}
		default:
			return domain.Reservation{}, err
		}
	}
	if balance.LessThan(listing.Price) {
		s.abort(ctx, attempt.Key)
		return domain.Reservation{}, s.insufficientFunds(listing.Price, balance)
	}

	if _, err := s.ledger.Adjust(ctx, callerToken, renter, listing.Price.Neg(), attempt.Key); err != nil {
		switch {
		case errors.Is(err, ledgersvc.ErrInsufficientFunds):
			// Lost a race against a concurrent reservation; the ledger
			// rejected the debit and nothing changed.
			s.abort(ctx, attempt.Key)
			return domain.Reservation{}, s.insufficientFunds(listing.Price, balance)
		case errors.Is(err, ledgersvc.ErrNotFound), errors.Is(err, ledgersvc.ErrUnauthorized):
			s.abort(ctx, attempt.Key)
			return domain.Reservation{}, &Error{Status: 401, Code: "UNAUTHORIZED", Message: "invalid token"}
		default:
			// Transport failure: the debit may or may not have
			// committed. The caller cannot assume failure, so the
			// attempt is kept visible for reconciliation.
			return domain.Reservation{}, s.inconsistency(ctx, attempt)
		}
	}
	_ = s.journal.SetState(ctx, attempt.Key, settlementjournal.StateDebited, s.clk.Now())

	// Record the booking immediately after the debit; nothing may run in
	// between, to keep the partial-failure window minimal.
	res := domain.Reservation{
		ListingID: listing.ID,
		Day:       listing.Day,
		Driver:    listing.Driver,
		Renter:    renter,
	}
	id, err := s.bookings.Create(ctx, res)
	if err != nil {
		return domain.Reservation{}, s.inconsistency(ctx, attempt)
	}
	res.ID = id

	_ = s.journal.SetState(ctx, attempt.Key, settlementjournal.StateBooked, s.clk.Now())
	_ = s.publisher.SettlementCompleted(ctx, s.event(attempt))
	s.outcomes.Record(OutcomeBooked)
	return res, nil
}

// ViewLatest returns the caller's most recent reservation as either party,
// enriched with the listing price and the caller's average rating of the
// counterpart. An empty View is returned when no reservation involves the
// caller.
func (s *Service) ViewLatest(ctx context.Context, caller domain.Username, callerToken string) (View, error) {
	res, err := s.bookings.LatestInvolving(ctx, caller)
	if err != nil {
		if errors.Is(err, reservationrepo.ErrNotFound) {
			return View{Empty: true}, nil
		}
		return View{}, err
	}

	counterpart, _ := res.Counterpart(caller)

	// The listing may have been pruned from the directory since booking;
	// the view then shows a zero price rather than failing.
	price := decimal.Zero
	if l, err := s.directory.Lookup(ctx, callerToken, res.ListingID); err == nil {
		price = l.Price
	} else if !errors.Is(err, directorysvc.ErrNotFound) {
		return View{}, err
	}

	avg, ok, err := s.reputation.AveragePair(ctx, callerToken, counterpart, caller)
	if err != nil {
		return View{}, err
	}

	return View{
		Reservation: res,
		Counterpart: counterpart,
		Price:       price,
		Rating:      avg,
		HasRating:   ok,
	}, nil
}

// StuckSettlements lists attempts whose debit committed but whose booking
// never did, last touched at least age ago. This is the reconciliation
// surface for the partial-failure window.
func (s *Service) StuckSettlements(ctx context.Context, age time.Duration) ([]settlementjournal.Attempt, error) {
	return s.journal.StuckDebits(ctx, s.clk.Now().Add(-age))
}

// abort marks an attempt failed before any side effect was committed.
func (s *Service) abort(ctx context.Context, key string) {
	_ = s.journal.SetState(ctx, key, settlementjournal.StateFailed, s.clk.Now())
}

func (s *Service) insufficientFunds(price, balance decimal.Decimal) *Error {
	s.outcomes.Record(OutcomeInsufficientFunds)
	return &Error{
		Status:  402,
		Code:    "INSUFFICIENT_FUNDS",
		Message: "balance below listing price",
		Details: map[string]any{
			"price":   domain.FormatAmount(price),
			"balance": domain.FormatAmount(balance),
		},
	}
}

// inconsistency records the one failure mode this flow cannot undo: a debit
// that committed (or may have) with no booking. The journal entry stays in
// the debited state and the stuck event carries the attempt key so an
// operator can reconcile ledger against bookings.
func (s *Service) inconsistency(ctx context.Context, attempt settlementjournal.Attempt) *Error {
	_ = s.journal.SetState(ctx, attempt.Key, settlementjournal.StateDebited, s.clk.Now())
	_ = s.publisher.SettlementStuck(ctx, s.event(attempt))
	s.outcomes.Record(OutcomeInconsistency)
	return &Error{
		Status:  500,
		Code:    "INTERNAL_INCONSISTENCY",
		Message: "debit committed without a booking; settlement needs reconciliation",
		Details: map[string]any{"attempt_key": attempt.Key},
	}
}

func (s *Service) event(attempt settlementjournal.Attempt) events.SettlementEvent {
	return events.SettlementEvent{
		Key:       attempt.Key,
		Renter:    string(attempt.Renter),
		Driver:    string(attempt.Driver),
		ListingID: string(attempt.ListingID),
		Amount:    domain.FormatAmount(attempt.Amount),
		At:        s.clk.Now(),
	}
}
