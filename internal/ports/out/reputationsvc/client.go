package reputationsvc

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

// ErrUnauthorized indicates the reputation service rejected the token.
var ErrUnauthorized = errors.New("unauthorized")

// Client reads aggregates from the reputation service. Averages are zero
// (ok=false) when no ratings exist; that is a result, not an error.
type Client interface {
	AveragePair(ctx context.Context, callerToken string, driver, rater domain.Username) (avg decimal.Decimal, ok bool, err error)
	AverageForDriver(ctx context.Context, callerToken string, driver domain.Username) (avg decimal.Decimal, ok bool, err error)
}
