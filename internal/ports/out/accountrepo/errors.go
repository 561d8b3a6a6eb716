package accountrepo

import "errors"

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrAlreadyExists indicates an account already exists for the username.
	ErrAlreadyExists = errors.New("account already exists")

	// ErrInsufficientFunds indicates a rejected debit: the result would
	// have been negative and the stored balance was left unchanged.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
