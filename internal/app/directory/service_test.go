package directory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	memlistingrepo "github.com/rideway-co/marketplace-api/internal/adapters/memory/listingrepo"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/identitysvc"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeIdentity struct {
	drivers map[domain.Username]bool
}

func (f *fakeIdentity) GetUser(_ context.Context, _ string, username domain.Username) (domain.User, error) {
	driver, ok := f.drivers[username]
	if !ok {
		return domain.User{}, identitysvc.ErrNotFound
	}
	return domain.User{Username: username, Driver: driver}, nil
}

type fakeReputation struct {
	avgs  map[domain.Username]decimal.Decimal
	calls int
}

func (f *fakeReputation) AveragePair(context.Context, string, domain.Username, domain.Username) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}

func (f *fakeReputation) AverageForDriver(_ context.Context, _ string, driver domain.Username) (decimal.Decimal, bool, error) {
	f.calls++
	avg, ok := f.avgs[driver]
	return avg, ok, nil
}

func newTestService() (*Service, *fakeReputation) {
	rep := &fakeReputation{avgs: map[domain.Username]decimal.Decimal{}}
	identity := &fakeIdentity{drivers: map[domain.Username]bool{
		"dora": true,
		"rita": false,
	}}
	svc := NewService(memlistingrepo.NewRepo(), identity, rep)
	return svc, rep
}

func asAppError(t *testing.T, err error) *Error {
	t.Helper()
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("err=%v, want *Error", err)
	}
	return ae
}

func TestSubmit_DriverOnly(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	_, err := svc.Submit(context.Background(), "rita", "tok", SubmitInput{Day: "monday", Price: "30.00"})
	ae := asAppError(t, err)
	if ae.Status != 403 || ae.Code != "DRIVER_REQUIRED" {
		t.Fatalf("err=%+v, want 403 DRIVER_REQUIRED", ae)
	}
}

func TestSubmit_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	cases := []SubmitInput{
		{Day: "", Price: "30.00"},
		{Day: "monday", Price: "0"},
		{Day: "monday", Price: "-5"},
		{Day: "monday", Price: "cheap"},
	}
	for _, in := range cases {
		_, err := svc.Submit(context.Background(), "dora", "tok", in)
		ae := asAppError(t, err)
		if ae.Status != 422 || ae.Code != "VALIDATION_ERROR" {
			t.Fatalf("Submit(%+v): err=%+v, want 422", in, ae)
		}
	}
}

func TestSubmit_MintsIDWhenAbsent(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	svc.SetNewListingIDForTest(func() domain.ListingID { return "generated-1" })

	l, err := svc.Submit(context.Background(), "dora", "tok", SubmitInput{Day: "monday", Price: "30.999"})
	if err != nil {
		t.Fatalf("Submit() err=%v", err)
	}
	if l.ID != "generated-1" || l.Driver != "dora" {
		t.Fatalf("listing=%+v", l)
	}
	// Prices are stored at two decimals.
	if got := l.Price.StringFixed(2); got != "31.00" {
		t.Fatalf("price=%s, want 31.00", got)
	}
}

func TestSubmit_KeepsClientIDAndRejectsDuplicates(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	in := SubmitInput{ListingID: "l-77", Day: "monday", Price: "30.00"}
	l, err := svc.Submit(context.Background(), "dora", "tok", in)
	if err != nil {
		t.Fatalf("Submit() err=%v", err)
	}
	if l.ID != "l-77" {
		t.Fatalf("id=%s, want l-77", l.ID)
	}
	_, err = svc.Submit(context.Background(), "dora", "tok", in)
	ae := asAppError(t, err)
	if ae.Status != 409 || ae.Code != "LISTING_EXISTS" {
		t.Fatalf("duplicate: err=%+v, want 409 LISTING_EXISTS", ae)
	}
}

func TestLookup_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	_, err := svc.Lookup(context.Background(), "missing")
	ae := asAppError(t, err)
	if ae.Status != 404 || ae.Code != "LISTING_NOT_FOUND" {
		t.Fatalf("err=%+v, want 404 LISTING_NOT_FOUND", ae)
	}
}

func TestSearch_SortsByPriceDescendingWithRatings(t *testing.T) {
	t.Parallel()

	svc, rep := newTestService()
	rep.avgs["dora"] = dec("4.50")

	listings := []SubmitInput{
		{ListingID: "l-1", Day: "monday", Price: "30.00"},
		{ListingID: "l-2", Day: "monday", Price: "45.00"},
		{ListingID: "l-3", Day: "monday", Price: "45.00"},
		{ListingID: "l-4", Day: "tuesday", Price: "99.00"},
	}
	for _, in := range listings {
		if _, err := svc.Submit(context.Background(), "dora", "tok", in); err != nil {
			t.Fatalf("Submit(%s) err=%v", in.ListingID, err)
		}
	}

	results, err := svc.Search(context.Background(), "tok", "monday")
	if err != nil {
		t.Fatalf("Search() err=%v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results=%d, want 3", len(results))
	}
	// Price descending; equal prices tie-break on ID ascending.
	var order []string
	for _, res := range results {
		order = append(order, string(res.Listing.ID))
	}
	if fmt.Sprint(order) != fmt.Sprint([]string{"l-2", "l-3", "l-1"}) {
		t.Fatalf("order=%v, want [l-2 l-3 l-1]", order)
	}
	for _, res := range results {
		if !res.HasRating || res.DriverRating.StringFixed(2) != "4.50" {
			t.Fatalf("rating=%+v, want 4.50", res)
		}
	}
	// One reputation read covers all listings by the same driver.
	if rep.calls != 1 {
		t.Fatalf("reputation calls=%d, want 1", rep.calls)
	}
}

func TestSearch_EmptyDayReturnsAll(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	for i, day := range []string{"monday", "tuesday"} {
		in := SubmitInput{ListingID: fmt.Sprintf("l-%d", i), Day: day, Price: "10.00"}
		if _, err := svc.Submit(context.Background(), "dora", "tok", in); err != nil {
			t.Fatalf("Submit() err=%v", err)
		}
	}
	results, err := svc.Search(context.Background(), "tok", "")
	if err != nil {
		t.Fatalf("Search() err=%v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results=%d, want 2", len(results))
	}
}
