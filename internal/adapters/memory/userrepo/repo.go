package userrepo

import (
	"context"
	"sync"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/userrepo"
)

// Repo is an in-memory implementation of userrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu         sync.RWMutex
	byUsername map[domain.Username]userrepo.User
}

func NewRepo() *Repo {
	return &Repo{byUsername: make(map[domain.Username]userrepo.User)}
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUsername[u.Username]; ok {
		return userrepo.ErrAlreadyExists
	}
	r.byUsername[u.Username] = u
	return nil
}

func (r *Repo) GetByUsername(ctx context.Context, username domain.Username) (userrepo.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byUsername[username]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return u, nil
}
