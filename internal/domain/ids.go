package domain

// Username is the unique account identifier carried inside identity tokens.
// We model it as an opaque identifier: its format is chosen at registration.
type Username string

// ListingID is the unique identifier of an offered ride slot.
type ListingID string

// ReservationID is the identifier of a committed booking. It is assigned by
// the reservation store and is monotonic within that store.
type ReservationID int64
