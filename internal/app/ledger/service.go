// Package ledger implements the account ledger: per-user balances and their
// atomic adjustment. The repository guarantees the per-username critical
// section; this service enforces the authorization and validation rules
// around it.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/accountrepo"
	clockport "github.com/rideway-co/marketplace-api/internal/ports/out/clock"
)

type Service struct {
	accounts accountrepo.Repository
	clk      clockport.Clock
}

func NewService(accounts accountrepo.Repository, clk clockport.Clock) *Service {
	return &Service{accounts: accounts, clk: clk}
}

// CreateAccount provisions an account with an opening balance. Callers may
// only provision their own account: the identity service mints the new
// user's token before calling.
func (s *Service) CreateAccount(ctx context.Context, caller, username domain.Username, opening decimal.Decimal) error {
	if caller != username {
		return subjectMismatch()
	}
	if opening.IsNegative() {
		return &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid opening balance",
			Details: map[string]any{"opening": "must not be negative"},
		}
	}
	err := s.accounts.Create(ctx, domain.Account{Username: username, Balance: opening})
	if errors.Is(err, accountrepo.ErrAlreadyExists) {
		return &Error{Status: 409, Code: "ACCOUNT_EXISTS", Message: "account already exists"}
	}
	return err
}

// Balance returns the caller's own balance.
func (s *Service) Balance(ctx context.Context, caller, username domain.Username) (decimal.Decimal, error) {
	if caller != username {
		return decimal.Zero, subjectMismatch()
	}
	a, err := s.accounts.Get(ctx, username)
	if errors.Is(err, accountrepo.ErrNotFound) {
		return decimal.Zero, notFound()
	}
	if err != nil {
		return decimal.Zero, err
	}
	return a.Balance, nil
}

// Deposit credits the caller's account and appends to the deposit log.
// Amounts must be strictly positive.
func (s *Service) Deposit(ctx context.Context, caller domain.Username, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid amount",
			Details: map[string]any{"amount": "must be positive"},
		}
	}
	newBal, err := s.accounts.Adjust(ctx, caller, domain.RoundAmount(amount))
	if errors.Is(err, accountrepo.ErrNotFound) {
		return decimal.Zero, notFound()
	}
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.accounts.AppendDeposit(ctx, accountrepo.Deposit{
		Username: caller,
		Amount:   domain.RoundAmount(amount),
		At:       s.clk.Now(),
	}); err != nil {
		return decimal.Zero, err
	}
	return newBal, nil
}

// Adjust applies delta to the account on behalf of the token's subject:
// this is the settlement debit path. A debit whose result would be negative
// is rejected atomically with no balance change.
func (s *Service) Adjust(ctx context.Context, caller, username domain.Username, delta decimal.Decimal) (decimal.Decimal, error) {
	if caller != username {
		return decimal.Zero, subjectMismatch()
	}
	newBal, err := s.accounts.Adjust(ctx, username, domain.RoundAmount(delta))
	switch {
	case errors.Is(err, accountrepo.ErrNotFound):
		return decimal.Zero, notFound()
	case errors.Is(err, accountrepo.ErrInsufficientFunds):
		return decimal.Zero, &Error{
			Status:  402,
			Code:    "INSUFFICIENT_FUNDS",
			Message: "adjustment would make balance negative",
		}
	case err != nil:
		return decimal.Zero, err
	}
	return newBal, nil
}

func subjectMismatch() *Error {
	return &Error{Status: 401, Code: "UNAUTHORIZED", Message: "token subject does not match account"}
}

func notFound() *Error {
	return &Error{Status: 404, Code: "ACCOUNT_NOT_FOUND", Message: "account not found"}
}
