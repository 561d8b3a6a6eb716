package userrepo

import "errors"

var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrAlreadyExists indicates a user already exists with the username.
	ErrAlreadyExists = errors.New("user already exists")
)
