package reputation

import (
	"context"
	"errors"
	"testing"

	memratingrepo "github.com/rideway-co/marketplace-api/internal/adapters/memory/ratingrepo"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/identitysvc"
)

type fakeIdentity struct {
	known map[domain.Username]bool
}

func (f *fakeIdentity) GetUser(_ context.Context, _ string, username domain.Username) (domain.User, error) {
	if !f.known[username] {
		return domain.User{}, identitysvc.ErrNotFound
	}
	return domain.User{Username: username}, nil
}

func newTestService() *Service {
	identity := &fakeIdentity{known: map[domain.Username]bool{"dora": true, "rita": true, "ron": true}}
	return NewService(memratingrepo.NewRepo(), identity)
}

func asAppError(t *testing.T, err error) *Error {
	t.Helper()
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("err=%v, want *Error", err)
	}
	return ae
}

func TestSubmit_ValueRange(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	for _, v := range []int{0, -1, 6} {
		err := svc.Submit(context.Background(), "rita", "tok", "dora", v)
		ae := asAppError(t, err)
		if ae.Status != 422 || ae.Code != "VALIDATION_ERROR" {
			t.Fatalf("Submit(value=%d): err=%+v, want 422", v, ae)
		}
	}
	for v := 1; v <= 5; v++ {
		if err := svc.Submit(context.Background(), "rita", "tok", "dora", v); err != nil {
			t.Fatalf("Submit(value=%d) err=%v", v, err)
		}
	}
}

func TestSubmit_UnknownTarget(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	err := svc.Submit(context.Background(), "rita", "tok", "ghost", 5)
	ae := asAppError(t, err)
	if ae.Status != 404 || ae.Code != "UNKNOWN_TARGET" {
		t.Fatalf("err=%+v, want 404 UNKNOWN_TARGET", ae)
	}
}

func TestAverages_PairAndOverall(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	submissions := []struct {
		rater domain.Username
		value int
	}{
		{"rita", 5},
		{"rita", 4},
		{"ron", 2},
	}
	for _, s := range submissions {
		if err := svc.Submit(context.Background(), s.rater, "tok", "dora", s.value); err != nil {
			t.Fatalf("Submit() err=%v", err)
		}
	}

	avg, ok, err := svc.AveragePair(context.Background(), "dora", "rita")
	if err != nil || !ok {
		t.Fatalf("AveragePair() ok=%v err=%v", ok, err)
	}
	if got := avg.StringFixed(2); got != "4.50" {
		t.Fatalf("pair average=%s, want 4.50", got)
	}

	avg, ok, err = svc.AverageForDriver(context.Background(), "dora")
	if err != nil || !ok {
		t.Fatalf("AverageForDriver() ok=%v err=%v", ok, err)
	}
	if got := avg.StringFixed(2); got != "3.67" {
		t.Fatalf("overall average=%s, want 3.67", got)
	}

	// No ratings yet for this driver: ok=false, not an error.
	if _, ok, err := svc.AverageForDriver(context.Background(), "rita"); err != nil || ok {
		t.Fatalf("empty average: ok=%v err=%v, want ok=false", ok, err)
	}
}
