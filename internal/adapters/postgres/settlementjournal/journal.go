package settlementjournal

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/rideway-co/marketplace-api/internal/adapters/postgres"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/settlementjournal"
)

const schema = `
CREATE TABLE IF NOT EXISTS settlement_attempts (
	key        TEXT PRIMARY KEY,
	renter     TEXT NOT NULL,
	driver     TEXT NOT NULL,
	listing_id TEXT NOT NULL,
	amount     NUMERIC(14,2) NOT NULL,
	state      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS settlement_attempts_state_idx ON settlement_attempts(state);
`

// Journal is a Postgres implementation of settlementjournal.Journal.
type Journal struct {
	pool *pgxpool.Pool
}

func NewJournal(pool *pgxpool.Pool) *Journal { return &Journal{pool: pool} }

// EnsureSchema creates the store's tables. Safe to call when they exist.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	_, err := j.pool.Exec(ctx, schema)
	return err
}

func (j *Journal) Begin(ctx context.Context, a settlementjournal.Attempt) error {
	_, err := j.pool.Exec(ctx, `
		INSERT INTO settlement_attempts (key, renter, driver, listing_id, amount, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		a.Key, string(a.Renter), string(a.Driver), string(a.ListingID),
		domain.FormatAmount(a.Amount), string(a.State), a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	)
	if postgres.IsUniqueViolation(err, "") {
		return settlementjournal.ErrAlreadyExists
	}
	return err
}

func (j *Journal) SetState(ctx context.Context, key string, s settlementjournal.State, at time.Time) error {
	ct, err := j.pool.Exec(ctx,
		`UPDATE settlement_attempts SET state = $2, updated_at = $3 WHERE key = $1`,
		key, string(s), at.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return settlementjournal.ErrNotFound
	}
	return nil
}

func (j *Journal) Get(ctx context.Context, key string) (settlementjournal.Attempt, error) {
	row := j.pool.QueryRow(ctx, `
		SELECT key, renter, driver, listing_id, amount::text, state, created_at, updated_at
		FROM settlement_attempts WHERE key = $1
	`, key)
	a, err := scanAttempt(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return settlementjournal.Attempt{}, settlementjournal.ErrNotFound
	}
	return a, err
}

func (j *Journal) StuckDebits(ctx context.Context, cutoff time.Time) ([]settlementjournal.Attempt, error) {
	rows, err := j.pool.Query(ctx, `
		SELECT key, renter, driver, listing_id, amount::text, state, created_at, updated_at
		FROM settlement_attempts
		WHERE state = $1 AND updated_at <= $2
		ORDER BY updated_at
	`, string(settlementjournal.StateDebited), cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]settlementjournal.Attempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAttempt(scan func(...any) error) (settlementjournal.Attempt, error) {
	var (
		a                               settlementjournal.Attempt
		renter, driver, listing, amount string
		state                           string
	)
	if err := scan(&a.Key, &renter, &driver, &listing, &amount, &state, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return settlementjournal.Attempt{}, err
	}
	amt, err := domain.ParseAmount(amount)
	if err != nil {
		return settlementjournal.Attempt{}, err
	}
	a.Renter = domain.Username(renter)
	a.Driver = domain.Username(driver)
	a.ListingID = domain.ListingID(listing)
	a.Amount = amt
	a.State = settlementjournal.State(state)
	return a, nil
}
