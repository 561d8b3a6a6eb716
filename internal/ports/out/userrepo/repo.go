package userrepo

import (
	"context"
	"time"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

// User is the persistence shape used by the identity store. Hash and Salt
// are internal records and never cross the service boundary.
type User struct {
	Username  domain.Username
	FirstName string
	LastName  string
	Email     string
	Driver    bool

	// Hash is hex(sha256(password + salt)); Salt is a hex-encoded random
	// salt generated at registration.
	Hash string
	Salt string

	CreatedAt time.Time
}

// Repository provides access to persisted identity records.
type Repository interface {
	Create(ctx context.Context, u User) error
	GetByUsername(ctx context.Context, username domain.Username) (User, error)
}
