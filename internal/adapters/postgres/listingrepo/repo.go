package listingrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/rideway-co/marketplace-api/internal/adapters/postgres"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/listingrepo"
)

const schema = `
CREATE TABLE IF NOT EXISTS listings (
	listing_id TEXT PRIMARY KEY,
	day        TEXT NOT NULL,
	price      NUMERIC(14,2) NOT NULL,
	driver     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS listings_day_idx ON listings(day);
`

// Repo is a Postgres implementation of listingrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// EnsureSchema creates the store's tables. Safe to call when they exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

func (r *Repo) Create(ctx context.Context, l domain.Listing) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO listings (listing_id, day, price, driver) VALUES ($1, $2, $3, $4)`,
		string(l.ID), l.Day, domain.FormatAmount(l.Price), string(l.Driver),
	)
	if postgres.IsUniqueViolation(err, "") {
		return listingrepo.ErrAlreadyExists
	}
	return err
}

func (r *Repo) GetByID(ctx context.Context, id domain.ListingID) (domain.Listing, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT listing_id, day, price::text, driver FROM listings WHERE listing_id = $1`,
		string(id),
	)
	l, err := scanListing(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Listing{}, listingrepo.ErrNotFound
	}
	return l, err
}

func (r *Repo) ListByDay(ctx context.Context, day string) ([]domain.Listing, error) {
	query := `SELECT listing_id, day, price::text, driver FROM listings`
	args := []any{}
	if day != "" {
		query += ` WHERE day = $1`
		args = append(args, day)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanListing(scan func(...any) error) (domain.Listing, error) {
	var id, day, price, driver string
	if err := scan(&id, &day, &price, &driver); err != nil {
		return domain.Listing{}, err
	}
	p, err := domain.ParseAmount(price)
	if err != nil {
		return domain.Listing{}, err
	}
	return domain.Listing{
		ID:     domain.ListingID(id),
		Day:    day,
		Price:  p,
		Driver: domain.Username(driver),
	}, nil
}
