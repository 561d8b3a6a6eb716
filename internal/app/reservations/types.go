package reservations

import (
	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

// View is the caller's most recent reservation, enriched with the
// counterpart's identity, the listing's price and the caller's average
// rating of the counterpart. Empty is set when the caller has no
// reservations; that is a result, not an error.
type View struct {
	Empty bool

	Reservation domain.Reservation
	Counterpart domain.Username
	Price       decimal.Decimal
	Rating      decimal.Decimal
	HasRating   bool
}
