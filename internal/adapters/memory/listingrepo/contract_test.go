package listingrepo

import (
	"testing"

	"github.com/rideway-co/marketplace-api/internal/adapters/contracttest"
	listingrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/listingrepo"
)

func TestContract_MemoryListingRepo(t *testing.T) {
	t.Parallel()

	contracttest.RunListingRepo(t, func(t *testing.T) (listingrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
