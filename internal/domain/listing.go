package domain

import "github.com/shopspring/decimal"

// Listing is an offered ride slot. Listings are immutable once submitted;
// settlement treats them as read-only input.
type Listing struct {
	ID     ListingID
	Day    string
	Price  decimal.Decimal
	Driver Username
}
