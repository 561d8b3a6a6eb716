package ratingrepo

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

// Repository owns rating submissions. Rows are append-only; aggregation
// happens at read time, so there is no concurrency hazard beyond the
// store's own insert.
type Repository interface {
	Append(ctx context.Context, r domain.Rating) error

	// AveragePair returns the mean of all ratings rater gave driver.
	// ok is false when no such ratings exist.
	AveragePair(ctx context.Context, driver, rater domain.Username) (avg decimal.Decimal, ok bool, err error)

	// AverageForDriver returns the mean across all raters of driver.
	// ok is false when the driver has no ratings.
	AverageForDriver(ctx context.Context, driver domain.Username) (avg decimal.Decimal, ok bool, err error)
}
