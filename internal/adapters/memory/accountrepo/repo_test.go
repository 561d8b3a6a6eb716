package accountrepo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/accountrepo"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAdjust_RoundsToTwoDecimals(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	if err := r.Create(context.Background(), domain.Account{Username: "a", Balance: dec("10.00")}); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	bal, err := r.Adjust(context.Background(), "a", dec("0.005"))
	if err != nil {
		t.Fatalf("Adjust() err=%v", err)
	}
	if got := bal.StringFixed(2); got != "10.01" {
		t.Fatalf("balance=%s, want 10.01", got)
	}
}

func TestAdjust_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	if err := r.Create(context.Background(), domain.Account{Username: "rita", Balance: dec("50.00")}); err != nil {
		t.Fatalf("Create() err=%v", err)
	}

	// 20 concurrent debits of 10.00 against a balance of 50.00: exactly 5
	// may succeed, and the final balance must be exactly zero.
	const workers = 20
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = r.Adjust(context.Background(), "rita", dec("-10.00"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, accountrepo.ErrInsufficientFunds):
		default:
			t.Fatalf("worker %d: unexpected err=%v", i, err)
		}
	}
	if succeeded != 5 {
		t.Fatalf("succeeded=%d, want 5", succeeded)
	}

	a, err := r.Get(context.Background(), "rita")
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if got := a.Balance.StringFixed(2); got != "0.00" {
		t.Fatalf("final balance=%s, want 0.00", got)
	}
}

func TestAdjust_DifferentAccountsProceedIndependently(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	for _, u := range []domain.Username{"a", "b"} {
		if err := r.Create(context.Background(), domain.Account{Username: u, Balance: dec("5.00")}); err != nil {
			t.Fatalf("Create(%s) err=%v", u, err)
		}
	}

	var wg sync.WaitGroup
	for _, u := range []domain.Username{"a", "b"} {
		wg.Add(1)
		go func(u domain.Username) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if _, err := r.Adjust(context.Background(), u, dec("0.01")); err != nil {
					t.Errorf("Adjust(%s) err=%v", u, err)
					return
				}
			}
		}(u)
	}
	wg.Wait()

	for _, u := range []domain.Username{"a", "b"} {
		a, err := r.Get(context.Background(), u)
		if err != nil {
			t.Fatalf("Get(%s) err=%v", u, err)
		}
		if got := a.Balance.StringFixed(2); got != "6.00" {
			t.Fatalf("balance(%s)=%s, want 6.00", u, got)
		}
	}
}
