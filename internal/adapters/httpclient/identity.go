package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/identitysvc"
)

type Identity struct {
	base
}

var _ identitysvc.Client = (*Identity)(nil)

func NewIdentity(baseURL string, hc *http.Client) *Identity {
	return &Identity{base: newBase(baseURL, hc)}
}

func (c *Identity) GetUser(ctx context.Context, callerToken string, username domain.Username) (domain.User, error) {
	var resp struct {
		User struct {
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Email     string `json:"email"`
			Driver    bool   `json:"driver"`
		} `json:"user"`
	}
	err := c.call(ctx, http.MethodGet, "/users/"+url.PathEscape(string(username)), authHeader(callerToken), nil, &resp)
	if err != nil {
		var re *remoteError
		if errors.As(err, &re) {
			switch re.Status {
			case http.StatusNotFound:
				return domain.User{}, identitysvc.ErrNotFound
			case http.StatusUnauthorized, http.StatusForbidden:
				return domain.User{}, identitysvc.ErrUnauthorized
			}
		}
		return domain.User{}, err
	}
	return domain.User{
		Username:  domain.Username(resp.User.Username),
		FirstName: resp.User.FirstName,
		LastName:  resp.User.LastName,
		Email:     resp.User.Email,
		Driver:    resp.User.Driver,
	}, nil
}
