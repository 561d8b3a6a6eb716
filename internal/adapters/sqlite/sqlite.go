// Package sqlite provides shared helpers for the sqlite-backed stores.
//
// Each service owns one database file. Schema setup happens once at process
// start through each repo's EnsureSchema, which is idempotent: there is no
// runtime "is the store initialized" flag.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the database file at path.
//
// The connection pool is capped at a single connection: sqlite allows one
// writer, and funneling all statements through one connection keeps
// read-modify-write sequences serialized without SQLITE_BUSY churn.
// IsUniqueViolation reports whether err is a sqlite unique-constraint
// failure. The modernc driver does not export typed errors for this, so the
// check matches the canonical message.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return db, nil
}
