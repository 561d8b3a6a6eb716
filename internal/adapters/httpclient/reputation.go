package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/reputationsvc"
)

type Reputation struct {
	base
}

var _ reputationsvc.Client = (*Reputation)(nil)

func NewReputation(baseURL string, hc *http.Client) *Reputation {
	return &Reputation{base: newBase(baseURL, hc)}
}

func (c *Reputation) AveragePair(ctx context.Context, callerToken string, driver, rater domain.Username) (decimal.Decimal, bool, error) {
	q := url.Values{}
	q.Set("driver", string(driver))
	q.Set("rater", string(rater))
	return c.average(ctx, callerToken, q)
}

func (c *Reputation) AverageForDriver(ctx context.Context, callerToken string, driver domain.Username) (decimal.Decimal, bool, error) {
	q := url.Values{}
	q.Set("driver", string(driver))
	return c.average(ctx, callerToken, q)
}

func (c *Reputation) average(ctx context.Context, callerToken string, q url.Values) (decimal.Decimal, bool, error) {
	var resp struct {
		HasRatings bool   `json:"has_ratings"`
		Average    string `json:"average"`
	}
	err := c.call(ctx, http.MethodGet, "/ratings/average?"+q.Encode(), authHeader(callerToken), nil, &resp)
	if err != nil {
		var re *remoteError
		if errors.As(err, &re) && (re.Status == http.StatusUnauthorized || re.Status == http.StatusForbidden) {
			return decimal.Zero, false, reputationsvc.ErrUnauthorized
		}
		return decimal.Zero, false, err
	}
	if !resp.HasRatings {
		return decimal.Zero, false, nil
	}
	avg, err := domain.ParseAmount(resp.Average)
	if err != nil {
		return decimal.Zero, false, err
	}
	return avg, true, nil
}
