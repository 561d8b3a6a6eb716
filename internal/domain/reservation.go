package domain

// Reservation is a committed booking. Day and Driver are denormalized from
// the listing at settlement time: the record is a snapshot, not a live
// reference into the directory's store.
type Reservation struct {
	ID        ReservationID
	ListingID ListingID
	Day       string
	Driver    Username
	Renter    Username
}

// Counterpart returns the other party of the reservation from u's point of
// view, and whether u is involved at all.
func (r Reservation) Counterpart(u Username) (Username, bool) {
	switch u {
	case r.Renter:
		return r.Driver, true
	case r.Driver:
		return r.Renter, true
	default:
		return "", false
	}
}
