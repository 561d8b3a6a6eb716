package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	memuserrepo "github.com/rideway-co/marketplace-api/internal/adapters/memory/userrepo"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/platform/auth/token"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type provisionCall struct {
	username domain.Username
	opening  decimal.Decimal
}

type fakeLedger struct {
	mu    sync.Mutex
	calls []provisionCall
	err   error
}

func (f *fakeLedger) Balance(context.Context, string, domain.Username) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *fakeLedger) Adjust(context.Context, string, domain.Username, decimal.Decimal, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *fakeLedger) CreateAccount(_ context.Context, _ string, username domain.Username, opening decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, provisionCall{username: username, opening: opening})
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeLedger, *token.Codec) {
	t.Helper()
	codec, err := token.New([]byte("test-secret"))
	if err != nil {
		t.Fatalf("token.New() err=%v", err)
	}
	ledger := &fakeLedger{}
	svc := NewService(memuserrepo.NewRepo(), codec, ledger, fixedClock{now: time.Unix(7000, 0).UTC()})
	return svc, ledger, codec
}

func asAppError(t *testing.T, err error) *Error {
	t.Helper()
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("err=%v, want *Error", err)
	}
	return ae
}

func TestRegister_ProvisionsAccountWithDeposit(t *testing.T) {
	t.Parallel()

	svc, ledger, _ := newTestService(t)
	u, err := svc.Register(context.Background(), RegisterInput{
		Username:  "rita",
		Password:  "hunter2",
		FirstName: "  Rita ",
		LastName:  " van  Moss ",
		Email:     "rita@example.com",
		Deposit:   "25.50",
	})
	if err != nil {
		t.Fatalf("Register() err=%v", err)
	}
	if u.Username != "rita" || u.Driver {
		t.Fatalf("user=%+v", u)
	}
	// Human names have their whitespace normalized at the edge.
	if u.FirstName != "Rita" || u.LastName != "van Moss" {
		t.Fatalf("names=%q %q, want Rita / van Moss", u.FirstName, u.LastName)
	}
	if len(ledger.calls) != 1 {
		t.Fatalf("provision calls=%d, want 1", len(ledger.calls))
	}
	if ledger.calls[0].username != "rita" || ledger.calls[0].opening.StringFixed(2) != "25.50" {
		t.Fatalf("provision=%+v", ledger.calls[0])
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	in := RegisterInput{Username: "rita", Password: "pw"}
	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("Register() err=%v", err)
	}
	_, err := svc.Register(context.Background(), in)
	ae := asAppError(t, err)
	if ae.Status != 409 || ae.Code != "USERNAME_TAKEN" {
		t.Fatalf("err=%+v, want 409 USERNAME_TAKEN", ae)
	}
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"empty username", RegisterInput{Password: "pw"}},
		{"empty password", RegisterInput{Username: "rita"}},
		{"bad email", RegisterInput{Username: "rita", Password: "pw", Email: "not-an-email"}},
		{"negative deposit", RegisterInput{Username: "rita", Password: "pw", Deposit: "-1"}},
		{"malformed deposit", RegisterInput{Username: "rita", Password: "pw", Deposit: "lots"}},
	}
	for _, tc := range cases {
		_, err := svc.Register(context.Background(), tc.in)
		ae := asAppError(t, err)
		if ae.Status != 422 || ae.Code != "VALIDATION_ERROR" {
			t.Fatalf("%s: err=%+v, want 422 VALIDATION_ERROR", tc.name, ae)
		}
	}
}

func TestRegister_ProvisioningFailureSurfaces(t *testing.T) {
	t.Parallel()

	svc, ledger, _ := newTestService(t)
	ledger.err = errors.New("ledger down")

	_, err := svc.Register(context.Background(), RegisterInput{Username: "rita", Password: "pw"})
	ae := asAppError(t, err)
	if ae.Status != 500 || ae.Code != "ACCOUNT_PROVISIONING_FAILED" {
		t.Fatalf("err=%+v, want 500 ACCOUNT_PROVISIONING_FAILED", ae)
	}
}

func TestLogin_ReturnsVerifiableToken(t *testing.T) {
	t.Parallel()

	svc, _, codec := newTestService(t)
	if _, err := svc.Register(context.Background(), RegisterInput{Username: "rita", Password: "hunter2"}); err != nil {
		t.Fatalf("Register() err=%v", err)
	}

	tok, err := svc.Login(context.Background(), "rita", "hunter2")
	if err != nil {
		t.Fatalf("Login() err=%v", err)
	}
	sub, err := codec.Verify(tok)
	if err != nil {
		t.Fatalf("Verify() err=%v", err)
	}
	if sub != "rita" {
		t.Fatalf("subject=%q, want rita", sub)
	}
}

func TestLogin_UniformFailureForBadCredentials(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), RegisterInput{Username: "rita", Password: "hunter2"}); err != nil {
		t.Fatalf("Register() err=%v", err)
	}

	// Wrong password and unknown username are indistinguishable.
	for _, creds := range [][2]string{{"rita", "wrong"}, {"ghost", "hunter2"}} {
		_, err := svc.Login(context.Background(), creds[0], creds[1])
		ae := asAppError(t, err)
		if ae.Status != 401 || ae.Code != "INVALID_CREDENTIALS" {
			t.Fatalf("Login(%q): err=%+v, want 401 INVALID_CREDENTIALS", creds[0], ae)
		}
	}
}

func TestGetUser_NotFound(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	_, err := svc.GetUser(context.Background(), "ghost")
	ae := asAppError(t, err)
	if ae.Status != 404 || ae.Code != "USER_NOT_FOUND" {
		t.Fatalf("err=%+v, want 404 USER_NOT_FOUND", ae)
	}
}

func TestRegister_SaltsAreUnique(t *testing.T) {
	t.Parallel()

	codec, err := token.New([]byte("test-secret"))
	if err != nil {
		t.Fatalf("token.New() err=%v", err)
	}
	users := memuserrepo.NewRepo()
	svc := NewService(users, codec, &fakeLedger{}, fixedClock{now: time.Unix(7000, 0).UTC()})

	for _, name := range []string{"a", "b"} {
		if _, err := svc.Register(context.Background(), RegisterInput{Username: name, Password: "same-pw"}); err != nil {
			t.Fatalf("Register(%s) err=%v", name, err)
		}
	}
	ua, err := users.GetByUsername(context.Background(), "a")
	if err != nil {
		t.Fatalf("GetByUsername(a) err=%v", err)
	}
	ub, err := users.GetByUsername(context.Background(), "b")
	if err != nil {
		t.Fatalf("GetByUsername(b) err=%v", err)
	}
	if ua.Salt == ub.Salt || ua.Hash == ub.Hash {
		t.Fatalf("same password produced identical salt or hash")
	}
}
