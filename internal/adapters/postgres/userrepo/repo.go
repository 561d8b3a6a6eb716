package userrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/rideway-co/marketplace-api/internal/adapters/postgres"
	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/userrepo"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username   TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	driver     BOOLEAN NOT NULL DEFAULT FALSE,
	hash       TEXT NOT NULL,
	salt       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

// Repo is a Postgres implementation of userrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// EnsureSchema creates the store's tables. Safe to call when they exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (username, first_name, last_name, email, driver, hash, salt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		string(u.Username), u.FirstName, u.LastName, u.Email,
		u.Driver, u.Hash, u.Salt, u.CreatedAt.UTC(),
	)
	if postgres.IsUniqueViolation(err, "") {
		return userrepo.ErrAlreadyExists
	}
	return err
}

func (r *Repo) GetByUsername(ctx context.Context, username domain.Username) (userrepo.User, error) {
	var (
		u    userrepo.User
		name string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT username, first_name, last_name, email, driver, hash, salt, created_at
		FROM users WHERE username = $1
	`, string(username)).Scan(
		&name, &u.FirstName, &u.LastName, &u.Email, &u.Driver, &u.Hash, &u.Salt, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	if err != nil {
		return userrepo.User{}, err
	}
	u.Username = domain.Username(name)
	return u, nil
}
