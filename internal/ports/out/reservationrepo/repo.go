package reservationrepo

import (
	"context"
	"errors"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

// ErrNotFound indicates no reservation involves the requested party.
var ErrNotFound = errors.New("reservation not found")

// Repository owns the coordinator's booking store. Reservations are created
// exactly once per successful settlement and never updated or deleted.
type Repository interface {
	// Create persists r (ID ignored) and returns the assigned ID.
	// Assigned IDs are unique and monotonically increasing.
	Create(ctx context.Context, r domain.Reservation) (domain.ReservationID, error)

	// LatestInvolving returns the most recent reservation (by ID) where
	// username is either the renter or the driver.
	LatestInvolving(ctx context.Context, username domain.Username) (domain.Reservation, error)
}
