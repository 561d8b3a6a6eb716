package domain

// User is the public profile a service may learn about another account.
// Credentials never leave the identity store.
type User struct {
	Username  Username
	FirstName string
	LastName  string
	Email     string
	Driver    bool
}
