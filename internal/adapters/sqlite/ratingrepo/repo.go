package ratingrepo

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS ratings (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	driver TEXT NOT NULL,
	rater  TEXT NOT NULL,
	rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5)
);
CREATE INDEX IF NOT EXISTS ratings_pair_idx ON ratings(driver, rater);
`

// Repo is a sqlite implementation of ratingrepo.Repository.
//
// Averages are computed in decimal from SUM and COUNT rather than SQL AVG,
// which would go through a binary float.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

// EnsureSchema creates the store's tables. Safe to call when they exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *Repo) Append(ctx context.Context, rt domain.Rating) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ratings(driver, rater, rating) VALUES(?, ?, ?)`,
		string(rt.Driver), string(rt.Rater), rt.Value,
	)
	return err
}

func (r *Repo) AveragePair(ctx context.Context, driver, rater domain.Username) (decimal.Decimal, bool, error) {
	return r.average(ctx,
		`SELECT COALESCE(SUM(rating), 0), COUNT(*) FROM ratings WHERE driver = ? AND rater = ?`,
		string(driver), string(rater),
	)
}

func (r *Repo) AverageForDriver(ctx context.Context, driver domain.Username) (decimal.Decimal, bool, error) {
	return r.average(ctx,
		`SELECT COALESCE(SUM(rating), 0), COUNT(*) FROM ratings WHERE driver = ?`,
		string(driver),
	)
}

func (r *Repo) average(ctx context.Context, query string, args ...any) (decimal.Decimal, bool, error) {
	var sum, n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&sum, &n); err != nil {
		return decimal.Zero, false, err
	}
	if n == 0 {
		return decimal.Zero, false, nil
	}
	return decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(n), 2), true, nil
}
