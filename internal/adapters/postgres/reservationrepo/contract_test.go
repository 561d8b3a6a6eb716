package reservationrepo

import (
	"context"
	"testing"

	"github.com/rideway-co/marketplace-api/internal/adapters/contracttest"
	"github.com/rideway-co/marketplace-api/internal/adapters/postgres/testutil"
	reservationrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/reservationrepo"
)

func TestContract_PostgresReservationRepo(t *testing.T) {
	pool := testutil.OpenSchemaPool(t)

	contracttest.RunReservationRepo(t, func(t *testing.T) (reservationrepoport.Repository, func()) {
		t.Helper()
		repo := NewRepo(pool)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			t.Fatalf("EnsureSchema() err=%v", err)
		}
		return repo, nil
	})
}
