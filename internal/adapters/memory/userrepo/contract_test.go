package userrepo

import (
	"testing"

	"github.com/rideway-co/marketplace-api/internal/adapters/contracttest"
	userrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/userrepo"
)

func TestContract_MemoryUserRepo(t *testing.T) {
	t.Parallel()

	contracttest.RunUserRepo(t, func(t *testing.T) (userrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
