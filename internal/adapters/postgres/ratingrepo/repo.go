package ratingrepo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS ratings (
	id     BIGSERIAL PRIMARY KEY,
	driver TEXT NOT NULL,
	rater  TEXT NOT NULL,
	rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5)
);
CREATE INDEX IF NOT EXISTS ratings_pair_idx ON ratings(driver, rater);
`

// Repo is a Postgres implementation of ratingrepo.Repository.
// Averages are computed in decimal from SUM and COUNT.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// EnsureSchema creates the store's tables. Safe to call when they exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

func (r *Repo) Append(ctx context.Context, rt domain.Rating) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ratings (driver, rater, rating) VALUES ($1, $2, $3)`,
		string(rt.Driver), string(rt.Rater), rt.Value,
	)
	return err
}

func (r *Repo) AveragePair(ctx context.Context, driver, rater domain.Username) (decimal.Decimal, bool, error) {
	return r.average(ctx,
		`SELECT COALESCE(SUM(rating), 0), COUNT(*) FROM ratings WHERE driver = $1 AND rater = $2`,
		string(driver), string(rater),
	)
}

func (r *Repo) AverageForDriver(ctx context.Context, driver domain.Username) (decimal.Decimal, bool, error) {
	return r.average(ctx,
		`SELECT COALESCE(SUM(rating), 0), COUNT(*) FROM ratings WHERE driver = $1`,
		string(driver),
	)
}

func (r *Repo) average(ctx context.Context, query string, args ...any) (decimal.Decimal, bool, error) {
	var sum, n int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&sum, &n); err != nil {
		return decimal.Zero, false, err
	}
	if n == 0 {
		return decimal.Zero, false, nil
	}
	return decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(n), 2), true, nil
}
