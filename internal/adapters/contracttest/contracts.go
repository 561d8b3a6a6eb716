// Package contracttest holds backend-agnostic contract suites for the
// repository ports. Each storage adapter's tests call these with a factory
// for its own backend, so memory, sqlite and postgres all prove the same
// semantics.
package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
	accountrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/accountrepo"
	listingrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/listingrepo"
	ratingrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/ratingrepo"
	reservationrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/reservationrepo"
	journalport "github.com/rideway-co/marketplace-api/internal/ports/out/settlementjournal"
	userrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/userrepo"
)

type CleanupFunc = func()

type AccountRepoFactory func(t *testing.T) (accountrepoport.Repository, CleanupFunc)
type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type ListingRepoFactory func(t *testing.T) (listingrepoport.Repository, CleanupFunc)
type ReservationRepoFactory func(t *testing.T) (reservationrepoport.Repository, CleanupFunc)
type RatingRepoFactory func(t *testing.T) (ratingrepoport.Repository, CleanupFunc)
type JournalFactory func(t *testing.T) (journalport.Journal, CleanupFunc)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func RunAccountRepo(t *testing.T, newRepo AccountRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if _, err := repo.Get(ctx, "nobody"); !errors.Is(err, accountrepoport.ErrNotFound) {
		t.Fatalf("Get missing: want ErrNotFound, got %v", err)
	}

	if err := repo.Create(ctx, domain.Account{Username: "alice", Balance: dec("50.00")}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, domain.Account{Username: "alice", Balance: dec("1.00")}); !errors.Is(err, accountrepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate: want ErrAlreadyExists, got %v", err)
	}

	a, err := repo.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := a.Balance.StringFixed(2); got != "50.00" {
		t.Fatalf("balance=%s, want 50.00", got)
	}

	// Credit then debit within funds.
	if bal, err := repo.Adjust(ctx, "alice", dec("10.00")); err != nil || bal.StringFixed(2) != "60.00" {
		t.Fatalf("Adjust +10: bal=%v err=%v", bal, err)
	}
	if bal, err := repo.Adjust(ctx, "alice", dec("-60.00")); err != nil || bal.StringFixed(2) != "0.00" {
		t.Fatalf("Adjust -60: bal=%v err=%v", bal, err)
	}

	// A debit past zero is rejected and leaves the balance unchanged.
	if _, err := repo.Adjust(ctx, "alice", dec("-0.01")); !errors.Is(err, accountrepoport.ErrInsufficientFunds) {
		t.Fatalf("overdraft: want ErrInsufficientFunds, got %v", err)
	}
	a, err = repo.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get after rejected debit: %v", err)
	}
	if got := a.Balance.StringFixed(2); got != "0.00" {
		t.Fatalf("balance after rejected debit=%s, want 0.00", got)
	}

	if _, err := repo.Adjust(ctx, "nobody", dec("1.00")); !errors.Is(err, accountrepoport.ErrNotFound) {
		t.Fatalf("Adjust missing: want ErrNotFound, got %v", err)
	}

	if err := repo.AppendDeposit(ctx, accountrepoport.Deposit{
		Username: "alice",
		Amount:   dec("10.00"),
		At:       time.Unix(1000, 0).UTC(),
	}); err != nil {
		t.Fatalf("AppendDeposit: %v", err)
	}
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if _, err := repo.GetByUsername(ctx, "nobody"); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByUsername missing: want ErrNotFound, got %v", err)
	}

	u := userrepoport.User{
		Username:  "bob",
		FirstName: "Bob",
		LastName:  "Stone",
		Email:     "bob@example.com",
		Driver:    true,
		Hash:      "deadbeef",
		Salt:      "cafe",
		CreatedAt: time.Unix(2000, 0).UTC(),
	}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, u); !errors.Is(err, userrepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate: want ErrAlreadyExists, got %v", err)
	}

	got, err := repo.GetByUsername(ctx, "bob")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.Hash != "deadbeef" || got.Salt != "cafe" || !got.Driver || got.Email != "bob@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func RunListingRepo(t *testing.T, newRepo ListingRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, listingrepoport.ErrNotFound) {
		t.Fatalf("GetByID missing: want ErrNotFound, got %v", err)
	}

	l1 := domain.Listing{ID: "l-1", Day: "monday", Price: dec("30.00"), Driver: "dora"}
	l2 := domain.Listing{ID: "l-2", Day: "monday", Price: dec("45.00"), Driver: "dora"}
	l3 := domain.Listing{ID: "l-3", Day: "tuesday", Price: dec("12.50"), Driver: "dana"}
	for _, l := range []domain.Listing{l1, l2, l3} {
		if err := repo.Create(ctx, l); err != nil {
			t.Fatalf("Create %s: %v", l.ID, err)
		}
	}
	if err := repo.Create(ctx, l1); !errors.Is(err, listingrepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate: want ErrAlreadyExists, got %v", err)
	}

	got, err := repo.GetByID(ctx, "l-2")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Price.Equal(dec("45.00")) || got.Driver != "dora" {
		t.Fatalf("unexpected listing: %+v", got)
	}

	monday, err := repo.ListByDay(ctx, "monday")
	if err != nil {
		t.Fatalf("ListByDay monday: %v", err)
	}
	if len(monday) != 2 {
		t.Fatalf("monday listings=%d, want 2", len(monday))
	}

	all, err := repo.ListByDay(ctx, "")
	if err != nil {
		t.Fatalf("ListByDay all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all listings=%d, want 3", len(all))
	}
}

func RunReservationRepo(t *testing.T, newRepo ReservationRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if _, err := repo.LatestInvolving(ctx, "nobody"); !errors.Is(err, reservationrepoport.ErrNotFound) {
		t.Fatalf("LatestInvolving missing: want ErrNotFound, got %v", err)
	}

	id1, err := repo.Create(ctx, domain.Reservation{ListingID: "l-1", Day: "monday", Driver: "dora", Renter: "rita"})
	if err != nil {
		t.Fatalf("Create 1: %v", err)
	}
	id2, err := repo.Create(ctx, domain.Reservation{ListingID: "l-2", Day: "tuesday", Driver: "dana", Renter: "rita"})
	if err != nil {
		t.Fatalf("Create 2: %v", err)
	}
	if id2 <= id1 {
		t.Fatalf("ids not increasing: %d then %d", id1, id2)
	}

	// Latest by renter is the second booking.
	latest, err := repo.LatestInvolving(ctx, "rita")
	if err != nil {
		t.Fatalf("LatestInvolving rita: %v", err)
	}
	if latest.ID != id2 || latest.ListingID != "l-2" {
		t.Fatalf("latest=%+v, want id=%d listing=l-2", latest, id2)
	}

	// Driver side sees the same booking.
	latest, err = repo.LatestInvolving(ctx, "dana")
	if err != nil {
		t.Fatalf("LatestInvolving dana: %v", err)
	}
	if latest.ID != id2 {
		t.Fatalf("latest for driver=%+v, want id=%d", latest, id2)
	}

	latest, err = repo.LatestInvolving(ctx, "dora")
	if err != nil {
		t.Fatalf("LatestInvolving dora: %v", err)
	}
	if latest.ID != id1 {
		t.Fatalf("latest for dora=%+v, want id=%d", latest, id1)
	}
}

func RunRatingRepo(t *testing.T, newRepo RatingRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if _, ok, err := repo.AverageForDriver(ctx, "dora"); err != nil || ok {
		t.Fatalf("AverageForDriver empty: ok=%v err=%v, want ok=false", ok, err)
	}

	ratings := []domain.Rating{
		{Driver: "dora", Rater: "rita", Value: 5},
		{Driver: "dora", Rater: "rita", Value: 4},
		{Driver: "dora", Rater: "ron", Value: 2},
	}
	for i, r := range ratings {
		if err := repo.Append(ctx, r); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	avg, ok, err := repo.AveragePair(ctx, "dora", "rita")
	if err != nil || !ok {
		t.Fatalf("AveragePair: ok=%v err=%v", ok, err)
	}
	if got := avg.StringFixed(2); got != "4.50" {
		t.Fatalf("pair average=%s, want 4.50", got)
	}

	avg, ok, err = repo.AverageForDriver(ctx, "dora")
	if err != nil || !ok {
		t.Fatalf("AverageForDriver: ok=%v err=%v", ok, err)
	}
	if got := avg.StringFixed(2); got != "3.67" {
		t.Fatalf("driver average=%s, want 3.67", got)
	}

	if _, ok, err := repo.AveragePair(ctx, "dora", "stranger"); err != nil || ok {
		t.Fatalf("AveragePair no rows: ok=%v err=%v, want ok=false", ok, err)
	}
}

func RunSettlementJournal(t *testing.T, newJournal JournalFactory) {
	t.Helper()
	ctx := context.Background()

	j, cleanup := newJournal(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if _, err := j.Get(ctx, "missing"); !errors.Is(err, journalport.ErrNotFound) {
		t.Fatalf("Get missing: want ErrNotFound, got %v", err)
	}

	t0 := time.Unix(5000, 0).UTC()
	a := journalport.Attempt{
		Key:       "att-1",
		Renter:    "rita",
		Driver:    "dora",
		ListingID: "l-1",
		Amount:    dec("30.00"),
		State:     journalport.StatePending,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	if err := j.Begin(ctx, a); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := j.Begin(ctx, a); !errors.Is(err, journalport.ErrAlreadyExists) {
		t.Fatalf("Begin duplicate: want ErrAlreadyExists, got %v", err)
	}

	t1 := t0.Add(time.Second)
	if err := j.SetState(ctx, "att-1", journalport.StateDebited, t1); err != nil {
		t.Fatalf("SetState debited: %v", err)
	}
	got, err := j.Get(ctx, "att-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != journalport.StateDebited || !got.UpdatedAt.Equal(t1) {
		t.Fatalf("attempt=%+v, want debited at %v", got, t1)
	}

	// Debited attempts old enough are stuck; booked ones never are.
	stuck, err := j.StuckDebits(ctx, t1)
	if err != nil {
		t.Fatalf("StuckDebits: %v", err)
	}
	if len(stuck) != 1 || stuck[0].Key != "att-1" {
		t.Fatalf("stuck=%+v, want [att-1]", stuck)
	}
	stuck, err = j.StuckDebits(ctx, t1.Add(-time.Second))
	if err != nil {
		t.Fatalf("StuckDebits early cutoff: %v", err)
	}
	if len(stuck) != 0 {
		t.Fatalf("stuck before cutoff=%+v, want none", stuck)
	}

	if err := j.SetState(ctx, "att-1", journalport.StateBooked, t1.Add(time.Second)); err != nil {
		t.Fatalf("SetState booked: %v", err)
	}
	stuck, err = j.StuckDebits(ctx, t1.Add(time.Minute))
	if err != nil {
		t.Fatalf("StuckDebits after booked: %v", err)
	}
	if len(stuck) != 0 {
		t.Fatalf("booked attempt reported stuck: %+v", stuck)
	}

	if err := j.SetState(ctx, "missing", journalport.StateFailed, t1); !errors.Is(err, journalport.ErrNotFound) {
		t.Fatalf("SetState missing: want ErrNotFound, got %v", err)
	}
}
