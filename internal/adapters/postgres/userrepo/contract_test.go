package userrepo

import (
	"context"
	"testing"

	"github.com/rideway-co/marketplace-api/internal/adapters/contracttest"
	"github.com/rideway-co/marketplace-api/internal/adapters/postgres/testutil"
	userrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/userrepo"
)

func TestContract_PostgresUserRepo(t *testing.T) {
	pool := testutil.OpenSchemaPool(t)

	contracttest.RunUserRepo(t, func(t *testing.T) (userrepoport.Repository, func()) {
		t.Helper()
		repo := NewRepo(pool)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			t.Fatalf("EnsureSchema() err=%v", err)
		}
		return repo, nil
	})
}
