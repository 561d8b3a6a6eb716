package listingrepo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rideway-co/marketplace-api/internal/adapters/contracttest"
	sqlitedb "github.com/rideway-co/marketplace-api/internal/adapters/sqlite"
	listingrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/listingrepo"
)

func TestContract_SQLiteListingRepo(t *testing.T) {
	t.Parallel()

	contracttest.RunListingRepo(t, func(t *testing.T) (listingrepoport.Repository, func()) {
		t.Helper()
		db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "marketplace.db"))
		if err != nil {
			t.Fatalf("Open() err=%v", err)
		}
		repo := NewRepo(db)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			t.Fatalf("EnsureSchema() err=%v", err)
		}
		return repo, func() { _ = db.Close() }
	})
}
