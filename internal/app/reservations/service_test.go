package reservations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	memreservationrepo "github.com/rideway-co/marketplace-api/internal/adapters/memory/reservationrepo"
	memjournal "github.com/rideway-co/marketplace-api/internal/adapters/memory/settlementjournal"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/directorysvc"
	"github.com/rideway-co/marketplace-api/internal/ports/out/events"
	"github.com/rideway-co/marketplace-api/internal/ports/out/ledgersvc"
	"github.com/rideway-co/marketplace-api/internal/ports/out/settlementjournal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeDirectory struct {
	listings map[domain.ListingID]domain.Listing
}

func (f *fakeDirectory) Lookup(_ context.Context, _ string, id domain.ListingID) (domain.Listing, error) {
	l, ok := f.listings[id]
	if !ok {
		return domain.Listing{}, directorysvc.ErrNotFound
	}
	return l, nil
}

// fakeLedger mirrors the real ledger's conditional debit, with switches for
// forced failures.
type fakeLedger struct {
	mu       sync.Mutex
	balances map[domain.Username]decimal.Decimal

	adjustErr  error
	adjustKeys []string
}

func (f *fakeLedger) Balance(_ context.Context, _ string, username domain.Username) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bal, ok := f.balances[username]
	if !ok {
		return decimal.Zero, ledgersvc.ErrNotFound
	}
	return bal, nil
}

func (f *fakeLedger) Adjust(_ context.Context, _ string, username domain.Username, delta decimal.Decimal, idempotencyKey string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adjustKeys = append(f.adjustKeys, idempotencyKey)
	if f.adjustErr != nil {
		return decimal.Zero, f.adjustErr
	}
	bal, ok := f.balances[username]
	if !ok {
		return decimal.Zero, ledgersvc.ErrNotFound
	}
	next := bal.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, ledgersvc.ErrInsufficientFunds
	}
	f.balances[username] = next
	return next, nil
}

func (f *fakeLedger) CreateAccount(_ context.Context, _ string, username domain.Username, opening decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[username] = opening
	return nil
}

func (f *fakeLedger) balance(u domain.Username) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[u].StringFixed(2)
}

type fakeReputation struct {
	avg decimal.Decimal
	ok  bool
}

func (f *fakeReputation) AveragePair(context.Context, string, domain.Username, domain.Username) (decimal.Decimal, bool, error) {
	return f.avg, f.ok, nil
}

func (f *fakeReputation) AverageForDriver(context.Context, string, domain.Username) (decimal.Decimal, bool, error) {
	return f.avg, f.ok, nil
}

type capturePublisher struct {
	mu        sync.Mutex
	completed []events.SettlementEvent
	stuck     []events.SettlementEvent
}

func (p *capturePublisher) SettlementCompleted(_ context.Context, ev events.SettlementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, ev)
	return nil
}

func (p *capturePublisher) SettlementStuck(_ context.Context, ev events.SettlementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stuck = append(p.stuck, ev)
	return nil
}

type captureRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *captureRecorder) Record(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *captureRecorder) last(t *testing.T) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outcomes) == 0 {
		t.Fatalf("no outcome recorded")
	}
	return r.outcomes[len(r.outcomes)-1]
}

type fixture struct {
	svc       *Service
	directory *fakeDirectory
	ledger    *fakeLedger
	bookings  *memreservationrepo.Repo
	journal   *memjournal.Journal
	publisher *capturePublisher
	recorder  *captureRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		directory: &fakeDirectory{listings: map[domain.ListingID]domain.Listing{
			"l-1": {ID: "l-1", Day: "monday", Price: dec("30.00"), Driver: "dora"},
		}},
		ledger:    &fakeLedger{balances: map[domain.Username]decimal.Decimal{}},
		bookings:  memreservationrepo.NewRepo(),
		journal:   memjournal.NewJournal(),
		publisher: &capturePublisher{},
		recorder:  &captureRecorder{},
	}
	f.svc = NewService(f.directory, f.ledger, f.bookings, f.journal, &fakeReputation{}, fixedClock{now: time.Unix(9000, 0).UTC()})
	f.svc.SetPublisher(f.publisher)
	f.svc.SetOutcomeRecorder(f.recorder)
	f.svc.SetNewKeyForTest(func() string { return "att-1" })
	return f
}

func asAppError(t *testing.T, err error) *Error {
	t.Helper()
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("err=%v, want *Error", err)
	}
	return ae
}

func TestReserve_Success(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.ledger.balances["rita"] = dec("50.00")

	res, err := f.svc.Reserve(context.Background(), "rita", "tok", "l-1")
	if err != nil {
		t.Fatalf("Reserve() err=%v", err)
	}
	if res.ID != 1 || res.ListingID != "l-1" || res.Driver != "dora" || res.Renter != "rita" {
		t.Fatalf("reservation=%+v", res)
	}
	if got := f.ledger.balance("rita"); got != "20.00" {
		t.Fatalf("balance=%s, want 20.00", got)
	}
	if f.bookings.Count() != 1 {
		t.Fatalf("bookings=%d, want 1", f.bookings.Count())
	}

	a, err := f.journal.Get(context.Background(), "att-1")
	if err != nil {
		t.Fatalf("journal Get() err=%v", err)
	}
	if a.State != settlementjournal.StateBooked {
		t.Fatalf("journal state=%s, want booked", a.State)
	}
	if len(f.publisher.completed) != 1 || f.publisher.completed[0].Key != "att-1" {
		t.Fatalf("completed events=%+v", f.publisher.completed)
	}
	if got := f.recorder.last(t); got != OutcomeBooked {
		t.Fatalf("outcome=%s, want %s", got, OutcomeBooked)
	}
	// The debit carried the attempt's idempotency key.
	if len(f.ledger.adjustKeys) != 1 || f.ledger.adjustKeys[0] != "att-1" {
		t.Fatalf("adjust keys=%v", f.ledger.adjustKeys)
	}
}

func TestReserve_InsufficientFunds(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.ledger.balances["rita"] = dec("10.00")

	_, err := f.svc.Reserve(context.Background(), "rita", "tok", "l-1")
	ae := asAppError(t, err)
	if ae.Status != 402 || ae.Code != "INSUFFICIENT_FUNDS" {
		t.Fatalf("err=%+v, want 402 INSUFFICIENT_FUNDS", ae)
	}
	if ae.Details["price"] != "30.00" || ae.Details["balance"] != "10.00" {
		t.Fatalf("details=%v", ae.Details)
	}
	if got := f.ledger.balance("rita"); got != "10.00" {
		t.Fatalf("balance=%s, want unchanged 10.00", got)
	}
	if f.bookings.Count() != 0 {
		t.Fatalf("bookings=%d, want 0", f.bookings.Count())
	}
	a, err := f.journal.Get(context.Background(), "att-1")
	if err != nil {
		t.Fatalf("journal Get() err=%v", err)
	}
	if a.State != settlementjournal.StateFailed {
		t.Fatalf("journal state=%s, want failed", a.State)
	}
	if got := f.recorder.last(t); got != OutcomeInsufficientFunds {
		t.Fatalf("outcome=%s, want %s", got, OutcomeInsufficientFunds)
	}
}

func TestReserve_ListingNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.ledger.balances["rita"] = dec("50.00")

	_, err := f.svc.Reserve(context.Background(), "rita", "tok", "missing")
	ae := asAppError(t, err)
	if ae.Status != 404 || ae.Code != "LISTING_NOT_FOUND" {
		t.Fatalf("err=%+v, want 404 LISTING_NOT_FOUND", ae)
	}
	if got := f.ledger.balance("rita"); got != "50.00" {
		t.Fatalf("balance=%s, want unchanged 50.00", got)
	}
	if len(f.ledger.adjustKeys) != 0 {
		t.Fatalf("adjusts=%v, want none", f.ledger.adjustKeys)
	}
}

func TestReserve_AccountNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.Reserve(context.Background(), "ghost", "tok", "l-1")
	ae := asAppError(t, err)
	if ae.Status != 404 || ae.Code != "ACCOUNT_NOT_FOUND" {
		t.Fatalf("err=%+v, want 404 ACCOUNT_NOT_FOUND", ae)
	}
	a, err := f.journal.Get(context.Background(), "att-1")
	if err != nil {
		t.Fatalf("journal Get() err=%v", err)
	}
	if a.State != settlementjournal.StateFailed {
		t.Fatalf("journal state=%s, want failed", a.State)
	}
}

func TestReserve_EmptyListingID(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Reserve(context.Background(), "rita", "tok", "")
	ae := asAppError(t, err)
	if ae.Status != 422 || ae.Code != "VALIDATION_ERROR" {
		t.Fatalf("err=%+v, want 422 VALIDATION_ERROR", ae)
	}
}

func TestReserve_BookingInsertFailureLeavesDebitVisible(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.ledger.balances["rita"] = dec("50.00")
	f.bookings.FailCreateWith(errors.New("store down"))

	_, err := f.svc.Reserve(context.Background(), "rita", "tok", "l-1")
	ae := asAppError(t, err)
	if ae.Status != 500 || ae.Code != "INTERNAL_INCONSISTENCY" {
		t.Fatalf("err=%+v, want 500 INTERNAL_INCONSISTENCY", ae)
	}
	if ae.Details["attempt_key"] != "att-1" {
		t.Fatalf("details=%v, want attempt_key=att-1", ae.Details)
	}

	// Money moved and the journal must say so.
	if got := f.ledger.balance("rita"); got != "20.00" {
		t.Fatalf("balance=%s, want 20.00", got)
	}
	a, err := f.journal.Get(context.Background(), "att-1")
	if err != nil {
		t.Fatalf("journal Get() err=%v", err)
	}
	if a.State != settlementjournal.StateDebited {
		t.Fatalf("journal state=%s, want debited", a.State)
	}
	if len(f.publisher.stuck) != 1 || f.publisher.stuck[0].Key != "att-1" {
		t.Fatalf("stuck events=%+v", f.publisher.stuck)
	}
	if got := f.recorder.last(t); got != OutcomeInconsistency {
		t.Fatalf("outcome=%s, want %s", got, OutcomeInconsistency)
	}

	// The stuck attempt is visible through the reconciliation read.
	stuck, err := f.svc.StuckSettlements(context.Background(), 0)
	if err != nil {
		t.Fatalf("StuckSettlements() err=%v", err)
	}
	if len(stuck) != 1 || stuck[0].Key != "att-1" {
		t.Fatalf("stuck=%+v, want [att-1]", stuck)
	}
}

func TestReserve_AmbiguousDebitErrorIsInconsistency(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.ledger.balances["rita"] = dec("50.00")
	f.ledger.adjustErr = errors.New("connection reset")

	_, err := f.svc.Reserve(context.Background(), "rita", "tok", "l-1")
	ae := asAppError(t, err)
	if ae.Status != 500 || ae.Code != "INTERNAL_INCONSISTENCY" {
		t.Fatalf("err=%+v, want 500 INTERNAL_INCONSISTENCY", ae)
	}
	// The debit may have committed server-side, so the attempt is not
	// marked failed.
	a, err := f.journal.Get(context.Background(), "att-1")
	if err != nil {
		t.Fatalf("journal Get() err=%v", err)
	}
	if a.State != settlementjournal.StateDebited {
		t.Fatalf("journal state=%s, want debited", a.State)
	}
}

func TestReserve_DebitRaceMapsToInsufficientFunds(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.ledger.balances["rita"] = dec("50.00")
	f.ledger.adjustErr = ledgersvc.ErrInsufficientFunds

	_, err := f.svc.Reserve(context.Background(), "rita", "tok", "l-1")
	ae := asAppError(t, err)
	if ae.Status != 402 || ae.Code != "INSUFFICIENT_FUNDS" {
		t.Fatalf("err=%+v, want 402 INSUFFICIENT_FUNDS", ae)
	}
	a, err := f.journal.Get(context.Background(), "att-1")
	if err != nil {
		t.Fatalf("journal Get() err=%v", err)
	}
	if a.State != settlementjournal.StateFailed {
		t.Fatalf("journal state=%s, want failed", a.State)
	}
}

func TestViewLatest_EmptyWhenNoReservations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	view, err := f.svc.ViewLatest(context.Background(), "rita", "tok")
	if err != nil {
		t.Fatalf("ViewLatest() err=%v", err)
	}
	if !view.Empty {
		t.Fatalf("view=%+v, want Empty", view)
	}
}

func TestViewLatest_EnrichesCounterpartAndRating(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.ledger.balances["rita"] = dec("50.00")
	rep := &fakeReputation{avg: dec("4.50"), ok: true}
	f.svc = NewService(f.directory, f.ledger, f.bookings, f.journal, rep, fixedClock{now: time.Unix(9000, 0).UTC()})

	if _, err := f.svc.Reserve(context.Background(), "rita", "tok", "l-1"); err != nil {
		t.Fatalf("Reserve() err=%v", err)
	}

	// Renter's view shows the driver as counterpart.
	view, err := f.svc.ViewLatest(context.Background(), "rita", "tok")
	if err != nil {
		t.Fatalf("ViewLatest() err=%v", err)
	}
	if view.Empty || view.Counterpart != "dora" {
		t.Fatalf("view=%+v, want counterpart dora", view)
	}
	if got := view.Price.StringFixed(2); got != "30.00" {
		t.Fatalf("price=%s, want 30.00", got)
	}
	if !view.HasRating || view.Rating.StringFixed(2) != "4.50" {
		t.Fatalf("rating=%+v", view)
	}

	// Driver's view shows the renter.
	view, err = f.svc.ViewLatest(context.Background(), "dora", "tok")
	if err != nil {
		t.Fatalf("ViewLatest() err=%v", err)
	}
	if view.Counterpart != "rita" {
		t.Fatalf("counterpart=%s, want rita", view.Counterpart)
	}
}

func TestViewLatest_PrunedListingShowsZeroPrice(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.ledger.balances["rita"] = dec("50.00")
	if _, err := f.svc.Reserve(context.Background(), "rita", "tok", "l-1"); err != nil {
		t.Fatalf("Reserve() err=%v", err)
	}
	delete(f.directory.listings, "l-1")

	view, err := f.svc.ViewLatest(context.Background(), "rita", "tok")
	if err != nil {
		t.Fatalf("ViewLatest() err=%v", err)
	}
	if got := view.Price.StringFixed(2); got != "0.00" {
		t.Fatalf("price=%s, want 0.00", got)
	}
}
