// Package reputation implements rating submission and read-time averaging.
// Ratings are append-only, so there is no concurrency hazard here.
package reputation

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/identitysvc"
	"github.com/rideway-co/marketplace-api/internal/ports/out/ratingrepo"
)

type Service struct {
	ratings  ratingrepo.Repository
	identity identitysvc.Client
}

func NewService(ratings ratingrepo.Repository, identity identitysvc.Client) *Service {
	return &Service{ratings: ratings, identity: identity}
}

// Submit appends one rating of target by rater. The value must be 1..5 and
// the target must be an existing user.
func (s *Service) Submit(ctx context.Context, rater domain.Username, callerToken string, target domain.Username, value int) error {
	if target == "" {
		return &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid target",
			Details: map[string]any{"target": "must be non-empty"},
		}
	}
	if !domain.RatingValueValid(value) {
		return &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid rating",
			Details: map[string]any{"rating": "must be between 1 and 5"},
		}
	}
	if _, err := s.identity.GetUser(ctx, callerToken, target); err != nil {
		if errors.Is(err, identitysvc.ErrNotFound) {
			return &Error{Status: 404, Code: "UNKNOWN_TARGET", Message: "rating target does not exist"}
		}
		return err
	}
	return s.ratings.Append(ctx, domain.Rating{Driver: target, Rater: rater, Value: value})
}

// AveragePair returns the mean of rater's ratings of driver; ok is false
// when none exist (the caller renders that as zero, not as an error).
func (s *Service) AveragePair(ctx context.Context, driver, rater domain.Username) (decimal.Decimal, bool, error) {
	return s.ratings.AveragePair(ctx, driver, rater)
}

// AverageForDriver returns driver's mean across all raters.
func (s *Service) AverageForDriver(ctx context.Context, driver domain.Username) (decimal.Decimal, bool, error) {
	return s.ratings.AverageForDriver(ctx, driver)
}
