package identitysvc

import (
	"context"
	"errors"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrUnauthorized indicates the identity service rejected the token.
	ErrUnauthorized = errors.New("unauthorized")
)

// Client reads public profiles from the identity service. Used by the
// directory (driver check) and reputation (target existence) services.
type Client interface {
	GetUser(ctx context.Context, callerToken string, username domain.Username) (domain.User, error)
}
