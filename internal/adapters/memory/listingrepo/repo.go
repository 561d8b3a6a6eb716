package listingrepo

import (
	"context"
	"sync"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/listingrepo"
)

// Repo is an in-memory implementation of listingrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.ListingID]domain.Listing
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.ListingID]domain.Listing)}
}

func (r *Repo) Create(ctx context.Context, l domain.Listing) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[l.ID]; ok {
		return listingrepo.ErrAlreadyExists
	}
	r.byID[l.ID] = l
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ListingID) (domain.Listing, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.byID[id]
	if !ok {
		return domain.Listing{}, listingrepo.ErrNotFound
	}
	return l, nil
}

func (r *Repo) ListByDay(ctx context.Context, day string) ([]domain.Listing, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Listing, 0, len(r.byID))
	for _, l := range r.byID {
		if day != "" && l.Day != day {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}
