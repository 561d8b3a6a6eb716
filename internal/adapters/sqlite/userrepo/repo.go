package userrepo

import (
	"context"
	"database/sql"
	"errors"

	sqlitedb "github.com/rideway-co/marketplace-api/internal/adapters/sqlite"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/userrepo"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username   TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	driver     INTEGER NOT NULL DEFAULT 0,
	hash       TEXT NOT NULL,
	salt       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// Repo is a sqlite implementation of userrepo.Repository.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

// EnsureSchema creates the store's tables. Safe to call when they exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users(username, first_name, last_name, email, driver, hash, salt, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(u.Username), u.FirstName, u.LastName, u.Email,
		boolToInt(u.Driver), u.Hash, u.Salt, u.CreatedAt.UTC(),
	)
	if err != nil && sqlitedb.IsUniqueViolation(err) {
		return userrepo.ErrAlreadyExists
	}
	return err
}

func (r *Repo) GetByUsername(ctx context.Context, username domain.Username) (userrepo.User, error) {
	var (
		u      userrepo.User
		name   string
		driver int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT username, first_name, last_name, email, driver, hash, salt, created_at
		FROM users WHERE username = ?
	`, string(username)).Scan(
		&name, &u.FirstName, &u.LastName, &u.Email, &driver, &u.Hash, &u.Salt, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	if err != nil {
		return userrepo.User{}, err
	}
	u.Username = domain.Username(name)
	u.Driver = driver != 0
	return u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
