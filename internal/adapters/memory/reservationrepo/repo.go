package reservationrepo

import (
	"context"
	"sync"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/reservationrepo"
)

// Repo is an in-memory implementation of reservationrepo.Repository.
// It is safe for concurrent use. IDs are assigned from a monotonic counter.
type Repo struct {
	mu     sync.RWMutex
	nextID domain.ReservationID
	rows   []domain.Reservation

	// failCreate forces Create to fail; used by settlement tests to
	// exercise the debited-but-not-booked window.
	failCreate error
}

func NewRepo() *Repo {
	return &Repo{nextID: 1}
}

// FailCreateWith makes every subsequent Create return err (nil restores
// normal behavior). Test hook only.
func (r *Repo) FailCreateWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failCreate = err
}

func (r *Repo) Create(ctx context.Context, res domain.Reservation) (domain.ReservationID, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return 0, r.failCreate
	}
	res.ID = r.nextID
	r.nextID++
	r.rows = append(r.rows, res)
	return res.ID, nil
}

func (r *Repo) LatestInvolving(ctx context.Context, username domain.Username) (domain.Reservation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if _, ok := r.rows[i].Counterpart(username); ok {
			return r.rows[i], nil
		}
	}
	return domain.Reservation{}, reservationrepo.ErrNotFound
}

// Count returns the number of stored reservations. Test helper.
func (r *Repo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}
