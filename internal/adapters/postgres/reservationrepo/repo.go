package reservationrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/reservationrepo"
)

const schema = `
CREATE TABLE IF NOT EXISTS reservations (
	reservation_id BIGSERIAL PRIMARY KEY,
	listing_id     TEXT NOT NULL,
	day            TEXT NOT NULL,
	driver         TEXT NOT NULL,
	renter         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS reservations_renter_idx ON reservations(renter);
CREATE INDEX IF NOT EXISTS reservations_driver_idx ON reservations(driver);
`

// Repo is a Postgres implementation of reservationrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// EnsureSchema creates the store's tables. Safe to call when they exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

func (r *Repo) Create(ctx context.Context, res domain.Reservation) (domain.ReservationID, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO reservations (listing_id, day, driver, renter)
		VALUES ($1, $2, $3, $4)
		RETURNING reservation_id
	`, string(res.ListingID), res.Day, string(res.Driver), string(res.Renter)).Scan(&id)
	if err != nil {
		return 0, err
	}
	return domain.ReservationID(id), nil
}

func (r *Repo) LatestInvolving(ctx context.Context, username domain.Username) (domain.Reservation, error) {
	var (
		res                     domain.Reservation
		id                      int64
		listing, driver, renter string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT reservation_id, listing_id, day, driver, renter
		FROM reservations
		WHERE renter = $1 OR driver = $1
		ORDER BY reservation_id DESC
		LIMIT 1
	`, string(username)).Scan(&id, &listing, &res.Day, &driver, &renter)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, reservationrepo.ErrNotFound
	}
	if err != nil {
		return domain.Reservation{}, err
	}
	res.ID = domain.ReservationID(id)
	res.ListingID = domain.ListingID(listing)
	res.Driver = domain.Username(driver)
	res.Renter = domain.Username(renter)
	return res, nil
}
