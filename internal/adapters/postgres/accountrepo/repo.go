package accountrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	postgres "github.com/rideway-co/marketplace-api/internal/adapters/postgres"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/accountrepo"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	username TEXT PRIMARY KEY,
	balance  NUMERIC(14,2) NOT NULL CHECK (balance >= 0)
);
CREATE TABLE IF NOT EXISTS deposits (
	id       BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL,
	amount   NUMERIC(14,2) NOT NULL,
	at       TIMESTAMPTZ NOT NULL
);
`

// Repo is a Postgres implementation of accountrepo.Repository.
//
// Adjust is a single guarded UPDATE: the balance check and the write happen
// in one statement under row-level locking, so concurrent debits of one
// account serialize inside Postgres and can never overdraft.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// EnsureSchema creates the store's tables. Safe to call when they exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

func (r *Repo) Create(ctx context.Context, a domain.Account) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts (username, balance) VALUES ($1, $2)`,
		string(a.Username), domain.FormatAmount(a.Balance),
	)
	if postgres.IsUniqueViolation(err, "") {
		return accountrepo.ErrAlreadyExists
	}
	return err
}

func (r *Repo) Get(ctx context.Context, username domain.Username) (domain.Account, error) {
	var raw string
	err := r.pool.QueryRow(ctx,
		`SELECT balance::text FROM accounts WHERE username = $1`,
		string(username),
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, accountrepo.ErrNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	bal, err := domain.ParseAmount(raw)
	if err != nil {
		return domain.Account{}, err
	}
	return domain.Account{Username: username, Balance: bal}, nil
}

func (r *Repo) Adjust(ctx context.Context, username domain.Username, delta decimal.Decimal) (decimal.Decimal, error) {
	var raw string
	err := r.pool.QueryRow(ctx, `
		UPDATE accounts
		SET balance = round(balance + $2::numeric, 2)
		WHERE username = $1 AND balance + $2::numeric >= 0
		RETURNING balance::text
	`, string(username), delta.StringFixed(2)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the account is missing or the debit was rejected.
		if _, gerr := r.Get(ctx, username); gerr != nil {
			return decimal.Zero, gerr
		}
		return decimal.Zero, accountrepo.ErrInsufficientFunds
	}
	if err != nil {
		return decimal.Zero, err
	}
	return domain.ParseAmount(raw)
}

func (r *Repo) AppendDeposit(ctx context.Context, d accountrepo.Deposit) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO deposits (username, amount, at) VALUES ($1, $2, $3)`,
		string(d.Username), domain.FormatAmount(d.Amount), d.At.UTC(),
	)
	return err
}
