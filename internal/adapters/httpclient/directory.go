package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/directorysvc"
)

type Directory struct {
	base
}

var _ directorysvc.Client = (*Directory)(nil)

func NewDirectory(baseURL string, hc *http.Client) *Directory {
	return &Directory{base: newBase(baseURL, hc)}
}

func (c *Directory) Lookup(ctx context.Context, callerToken string, id domain.ListingID) (domain.Listing, error) {
	var resp struct {
		Listing struct {
			ListingID string `json:"listing_id"`
			Day       string `json:"day"`
			Price     string `json:"price"`
			Driver    string `json:"driver"`
		} `json:"listing"`
	}
	err := c.call(ctx, http.MethodGet, "/listings/"+url.PathEscape(string(id)), authHeader(callerToken), nil, &resp)
	if err != nil {
		var re *remoteError
		if errors.As(err, &re) {
			switch re.Status {
			case http.StatusNotFound:
				return domain.Listing{}, directorysvc.ErrNotFound
			case http.StatusUnauthorized, http.StatusForbidden:
				return domain.Listing{}, directorysvc.ErrUnauthorized
			}
		}
		return domain.Listing{}, err
	}
	price, err := domain.ParseAmount(resp.Listing.Price)
	if err != nil {
		return domain.Listing{}, err
	}
	return domain.Listing{
		ID:     domain.ListingID(resp.Listing.ListingID),
		Day:    resp.Listing.Day,
		Price:  price,
		Driver: domain.Username(resp.Listing.Driver),
	}, nil
}
