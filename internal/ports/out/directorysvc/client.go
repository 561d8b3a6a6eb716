package directorysvc

import (
	"context"
	"errors"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

var (
	// ErrNotFound indicates the listing does not exist.
	ErrNotFound = errors.New("listing not found")

	// ErrUnauthorized indicates the directory rejected the forwarded token.
	ErrUnauthorized = errors.New("unauthorized")
)

// Client reads listings from the directory service over its published
// interface. The caller's own token is forwarded on every call; no service
// ever reaches into the directory's store directly.
type Client interface {
	Lookup(ctx context.Context, callerToken string, id domain.ListingID) (domain.Listing, error)
}
