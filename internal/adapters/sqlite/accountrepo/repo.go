package accountrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	sqlitedb "github.com/rideway-co/marketplace-api/internal/adapters/sqlite"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/accountrepo"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	username TEXT PRIMARY KEY,
	balance  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS deposits (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL,
	amount   TEXT NOT NULL,
	at       TIMESTAMP NOT NULL
);
`

// Repo is a sqlite implementation of accountrepo.Repository.
//
// Balances are stored as exact two-decimal strings; arithmetic happens in
// decimal inside a transaction. The connection pool is a single connection
// (see the sqlite package), so the read-check-write in Adjust is a critical
// section for the whole store, which subsumes the per-username requirement.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

// EnsureSchema creates the store's tables. Safe to call when they exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *Repo) Create(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts(username, balance) VALUES(?, ?)`,
		string(a.Username), domain.FormatAmount(a.Balance),
	)
	if err != nil && sqlitedb.IsUniqueViolation(err) {
		return accountrepo.ErrAlreadyExists
	}
	return err
}

func (r *Repo) Get(ctx context.Context, username domain.Username) (domain.Account, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE username = ?`, string(username),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
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
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE username = ?`, string(username),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, accountrepo.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	bal, err := domain.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, err
	}

	next := domain.RoundAmount(bal.Add(delta))
	if next.IsNegative() {
		return decimal.Zero, accountrepo.ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE username = ?`,
		domain.FormatAmount(next), string(username),
	); err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return next, nil
}

func (r *Repo) AppendDeposit(ctx context.Context, d accountrepo.Deposit) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO deposits(username, amount, at) VALUES(?, ?, ?)`,
		string(d.Username), domain.FormatAmount(d.Amount), d.At.UTC(),
	)
	return err
}
