// Package directory implements the listing directory: submission, search
// and the lookup that settlement reads from. Listings are immutable once
// submitted.
package directory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/identitysvc"
	"github.com/rideway-co/marketplace-api/internal/ports/out/listingrepo"
	"github.com/rideway-co/marketplace-api/internal/ports/out/reputationsvc"
)

type SubmitInput struct {
	// ListingID is optional; one is minted when absent.
	ListingID string
	Day       string
	Price     string
}

// SearchResult is one search row: the listing plus the driver's overall
// average rating across all raters.
type SearchResult struct {
	Listing      domain.Listing
	DriverRating decimal.Decimal
	HasRating    bool
}

type Service struct {
	listings   listingrepo.Repository
	identity   identitysvc.Client
	reputation reputationsvc.Client

	newListingID func() domain.ListingID
}

func NewService(listings listingrepo.Repository, identity identitysvc.Client, reputation reputationsvc.Client) *Service {
	return &Service{
		listings:   listings,
		identity:   identity,
		reputation: reputation,
		newListingID: func() domain.ListingID {
			return domain.ListingID(uuid.NewString())
		},
	}
}

// SetNewListingIDForTest overrides listing ID generation for deterministic
// tests. It should not be used in production code.
func (s *Service) SetNewListingIDForTest(fn func() domain.ListingID) {
	if fn != nil {
		s.newListingID = fn
	}
}

// Submit creates a listing owned by the caller. Only driver accounts may
// submit; the flag is read from the identity service, never from another
// service's store.
func (s *Service) Submit(ctx context.Context, caller domain.Username, callerToken string, in SubmitInput) (domain.Listing, error) {
	day := strings.TrimSpace(in.Day)
	if day == "" {
		return domain.Listing{}, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid day",
			Details: map[string]any{"day": "must be non-empty"},
		}
	}
	price, err := domain.ParseAmount(in.Price)
	if err != nil || !price.IsPositive() {
		return domain.Listing{}, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid price",
			Details: map[string]any{"price": "must be a positive decimal"},
		}
	}

	user, err := s.identity.GetUser(ctx, callerToken, caller)
	if err != nil {
		if errors.Is(err, identitysvc.ErrNotFound) {
			return domain.Listing{}, &Error{Status: 404, Code: "USER_NOT_FOUND", Message: "user not found"}
		}
		return domain.Listing{}, err
	}
	if !user.Driver {
		return domain.Listing{}, &Error{Status: 403, Code: "DRIVER_REQUIRED", Message: "only driver accounts may submit listings"}
	}

	l := domain.Listing{
		ID:     domain.ListingID(strings.TrimSpace(in.ListingID)),
		Day:    day,
		Price:  domain.RoundAmount(price),
		Driver: caller,
	}
	if l.ID == "" {
		l.ID = s.newListingID()
	}
	if err := s.listings.Create(ctx, l); err != nil {
		if errors.Is(err, listingrepo.ErrAlreadyExists) {
			return domain.Listing{}, &Error{Status: 409, Code: "LISTING_EXISTS", Message: "listing already exists"}
		}
		return domain.Listing{}, err
	}
	return l, nil
}

// Lookup resolves one listing. This is the read settlement depends on.
func (s *Service) Lookup(ctx context.Context, id domain.ListingID) (domain.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, listingrepo.ErrNotFound) {
			return domain.Listing{}, &Error{Status: 404, Code: "LISTING_NOT_FOUND", Message: "listing not found"}
		}
		return domain.Listing{}, err
	}
	return l, nil
}

// Search returns listings for a day (all days when empty), each enriched
// with the driver's overall rating average, ordered by price descending.
func (s *Service) Search(ctx context.Context, callerToken string, day string) ([]SearchResult, error) {
	ls, err := s.listings.ListByDay(ctx, day)
	if err != nil {
		return nil, err
	}

	// One reputation call per distinct driver, not per listing.
	type avg struct {
		rating decimal.Decimal
		ok     bool
	}
	byDriver := make(map[domain.Username]avg)
	out := make([]SearchResult, 0, len(ls))
	for _, l := range ls {
		a, seen := byDriver[l.Driver]
		if !seen {
			rating, ok, err := s.reputation.AverageForDriver(ctx, callerToken, l.Driver)
			if err != nil {
				return nil, err
			}
			a = avg{rating: rating, ok: ok}
			byDriver[l.Driver] = a
		}
		out = append(out, SearchResult{Listing: l, DriverRating: a.rating, HasRating: a.ok})
	}

	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].Listing.Price, out[j].Listing.Price
		if pi.Equal(pj) {
			return out[i].Listing.ID < out[j].Listing.ID
		}
		return pi.GreaterThan(pj)
	})
	return out, nil
}
