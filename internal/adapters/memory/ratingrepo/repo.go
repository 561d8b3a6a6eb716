package ratingrepo

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
)

// Repo is an in-memory implementation of ratingrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	rows []domain.Rating
}

func NewRepo() *Repo {
	return &Repo{}
}

func (r *Repo) Append(ctx context.Context, rt domain.Rating) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, rt)
	return nil
}

func (r *Repo) AveragePair(ctx context.Context, driver, rater domain.Username) (decimal.Decimal, bool, error) {
	_ = ctx
	return r.average(func(rt domain.Rating) bool {
		return rt.Driver == driver && rt.Rater == rater
	})
}

func (r *Repo) AverageForDriver(ctx context.Context, driver domain.Username) (decimal.Decimal, bool, error) {
	_ = ctx
	return r.average(func(rt domain.Rating) bool {
		return rt.Driver == driver
	})
}

func (r *Repo) average(match func(domain.Rating) bool) (decimal.Decimal, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum, n := 0, 0
	for _, rt := range r.rows {
		if match(rt) {
			sum += rt.Value
			n++
		}
	}
	if n == 0 {
		return decimal.Zero, false, nil
	}
	avg := decimal.NewFromInt(int64(sum)).DivRound(decimal.NewFromInt(int64(n)), 2)
	return avg, true, nil
}
