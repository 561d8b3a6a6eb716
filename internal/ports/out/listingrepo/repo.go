package listingrepo

import (
	"context"
	"errors"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

var (
	// ErrNotFound indicates the listing does not exist.
	ErrNotFound = errors.New("listing not found")

	// ErrAlreadyExists indicates a listing already exists with the ID.
	ErrAlreadyExists = errors.New("listing already exists")
)

// Repository provides access to persisted listings. Listings are immutable
// once created; there is no update or delete.
//
// ListByDay with an empty day returns every listing. Results are returned in
// no particular order; callers sort for presentation.
type Repository interface {
	Create(ctx context.Context, l domain.Listing) error
	GetByID(ctx context.Context, id domain.ListingID) (domain.Listing, error)
	ListByDay(ctx context.Context, day string) ([]domain.Listing, error)
}
