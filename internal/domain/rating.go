package domain

// Rating is one append-only rating submission. Many may exist per
// (driver, rater) pair; aggregation is a read-time average.
type Rating struct {
	Driver Username
	Rater  Username
	Value  int
}

// RatingValueValid reports whether v is inside the accepted 1..5 range.
func RatingValueValid(v int) bool {
	return v >= 1 && v <= 5
}
