package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/ledgersvc"
)

type Ledger struct {
	base
}

var _ ledgersvc.Client = (*Ledger)(nil)

func NewLedger(baseURL string, hc *http.Client) *Ledger {
	return &Ledger{base: newBase(baseURL, hc)}
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

func (c *Ledger) Balance(ctx context.Context, callerToken string, username domain.Username) (decimal.Decimal, error) {
	var resp balanceResponse
	err := c.call(ctx, http.MethodGet, "/balance/"+url.PathEscape(string(username)), authHeader(callerToken), nil, &resp)
	if err != nil {
		return decimal.Zero, mapLedgerError(err)
	}
	return domain.ParseAmount(resp.Balance)
}

func (c *Ledger) Adjust(ctx context.Context, callerToken string, username domain.Username, delta decimal.Decimal, idempotencyKey string) (decimal.Decimal, error) {
	headers := authHeader(callerToken)
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	req := map[string]string{
		"username": string(username),
		"delta":    delta.String(),
	}
	var resp balanceResponse
	err := c.call(ctx, http.MethodPost, "/adjust", headers, req, &resp)
	if err != nil {
		return decimal.Zero, mapLedgerError(err)
	}
	return domain.ParseAmount(resp.Balance)
}

func (c *Ledger) CreateAccount(ctx context.Context, callerToken string, username domain.Username, opening decimal.Decimal) error {
	req := map[string]string{
		"username": string(username),
		"opening":  domain.FormatAmount(opening),
	}
	if err := c.call(ctx, http.MethodPost, "/accounts", authHeader(callerToken), req, nil); err != nil {
		return mapLedgerError(err)
	}
	return nil
}

func mapLedgerError(err error) error {
	var re *remoteError
	if !errors.As(err, &re) {
		return err
	}
	switch re.Status {
	case http.StatusNotFound:
		return ledgersvc.ErrNotFound
	case http.StatusPaymentRequired:
		return ledgersvc.ErrInsufficientFunds
	case http.StatusUnauthorized, http.StatusForbidden:
		return ledgersvc.ErrUnauthorized
	}
	return err
}
