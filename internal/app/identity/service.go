// Package identity implements registration, login and the token authority.
// It is the only service that issues tokens; everyone else only verifies.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/platform/auth/token"
	clockport "github.com/rideway-co/marketplace-api/internal/ports/out/clock"
	"github.com/rideway-co/marketplace-api/internal/ports/out/ledgersvc"
	"github.com/rideway-co/marketplace-api/internal/ports/out/userrepo"
)

type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
	Driver    bool
	// Deposit is the opening balance as a decimal string; empty means 0.
	Deposit string
}

type Service struct {
	users  userrepo.Repository
	tokens *token.Codec
	ledger ledgersvc.Client
	clk    clockport.Clock

	newSalt func() (string, error)
}

func NewService(users userrepo.Repository, tokens *token.Codec, ledger ledgersvc.Client, clk clockport.Clock) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		ledger: ledger,
		clk:    clk,
		newSalt: func() (string, error) {
			b := make([]byte, 16)
			if _, err := rand.Read(b); err != nil {
				return "", err
			}
			return hex.EncodeToString(b), nil
		},
	}
}

// Register creates the identity record and provisions the user's ledger
// account with the opening deposit. The ledger call is authenticated with a
// token minted for the new user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return domain.User{}, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid username",
			Details: map[string]any{"username": "must be non-empty"},
		}
	}
	if in.Password == "" {
		return domain.User{}, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid password",
			Details: map[string]any{"password": "must be non-empty"},
		}
	}
	if in.Email != "" {
		if err := validateEmail(in.Email); err != nil {
			return domain.User{}, &Error{
				Status:  422,
				Code:    "VALIDATION_ERROR",
				Message: "invalid email",
				Details: map[string]any{"email": err.Error()},
			}
		}
	}
	opening := decimal.Zero
	if in.Deposit != "" {
		d, err := domain.ParseAmount(in.Deposit)
		if err != nil || d.IsNegative() {
			return domain.User{}, &Error{
				Status:  422,
				Code:    "VALIDATION_ERROR",
				Message: "invalid deposit",
				Details: map[string]any{"deposit": "must be a non-negative decimal"},
			}
		}
		opening = domain.RoundAmount(d)
	}

	salt, err := s.newSalt()
	if err != nil {
		return domain.User{}, err
	}
	rec := userrepo.User{
		Username:  domain.Username(username),
		FirstName: domain.NormalizeHumanName(in.FirstName),
		LastName:  domain.NormalizeHumanName(in.LastName),
		Email:     strings.TrimSpace(in.Email),
		Driver:    in.Driver,
		Hash:      hashPassword(in.Password, salt),
		Salt:      salt,
		CreatedAt: s.clk.Now(),
	}
	if err := s.users.Create(ctx, rec); err != nil {
		if errors.Is(err, userrepo.ErrAlreadyExists) {
			return domain.User{}, &Error{Status: 409, Code: "USERNAME_TAKEN", Message: "username already taken"}
		}
		return domain.User{}, err
	}

	tok, err := s.tokens.Issue(rec.Username)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.ledger.CreateAccount(ctx, tok, rec.Username, opening); err != nil {
		// The identity record exists but the account does not; surface
		// this instead of pretending registration succeeded.
		return domain.User{}, &Error{
			Status:  500,
			Code:    "ACCOUNT_PROVISIONING_FAILED",
			Message: "user created but ledger account provisioning failed",
			Details: map[string]any{"username": username},
		}
	}
	return toDomain(rec), nil
}

// Login checks credentials and returns a signed identity token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	rec, err := s.users.GetByUsername(ctx, domain.Username(strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return "", invalidCredentials()
		}
		return "", err
	}
	want := []byte(rec.Hash)
	got := []byte(hashPassword(password, rec.Salt))
	if subtle.ConstantTimeCompare(want, got) != 1 {
		return "", invalidCredentials()
	}
	return s.tokens.Issue(rec.Username)
}

// GetUser returns the public profile for username.
func (s *Service) GetUser(ctx context.Context, username domain.Username) (domain.User, error) {
	rec, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, &Error{Status: 404, Code: "USER_NOT_FOUND", Message: "user not found"}
		}
		return domain.User{}, err
	}
	return toDomain(rec), nil
}

func hashPassword(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

func invalidCredentials() *Error {
	return &Error{Status: 401, Code: "INVALID_CREDENTIALS", Message: "invalid username or password"}
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return fmt.Errorf("must be a bare email address")
	}
	return nil
}

func toDomain(u userrepo.User) domain.User {
	return domain.User{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Driver:    u.Driver,
	}
}
