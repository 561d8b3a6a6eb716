package reservationrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/reservationrepo"
)

const schema = `
CREATE TABLE IF NOT EXISTS reservations (
	reservation_id INTEGER PRIMARY KEY AUTOINCREMENT,
	listing_id     TEXT NOT NULL,
	day            TEXT NOT NULL,
	driver         TEXT NOT NULL,
	renter         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS reservations_party_idx ON reservations(renter, driver);
`

// Repo is a sqlite implementation of reservationrepo.Repository.
// AUTOINCREMENT keeps reservation IDs monotonic even across deletes.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

// EnsureSchema creates the store's tables. Safe to call when they exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *Repo) Create(ctx context.Context, res domain.Reservation) (domain.ReservationID, error) {
	out, err := r.db.ExecContext(ctx,
		`INSERT INTO reservations(listing_id, day, driver, renter) VALUES(?, ?, ?, ?)`,
		string(res.ListingID), res.Day, string(res.Driver), string(res.Renter),
	)
	if err != nil {
		return 0, err
	}
	id, err := out.LastInsertId()
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
	err := r.db.QueryRowContext(ctx, `
		SELECT reservation_id, listing_id, day, driver, renter
		FROM reservations
		WHERE renter = ? OR driver = ?
		ORDER BY reservation_id DESC
		LIMIT 1
	`, string(username), string(username)).Scan(&id, &listing, &res.Day, &driver, &renter)
	if errors.Is(err, sql.ErrNoRows) {
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
