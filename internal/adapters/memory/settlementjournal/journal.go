package settlementjournal

import (
	"context"
	"sync"
	"time"

	"github.com/rideway-co/marketplace-api/internal/ports/out/settlementjournal"
)

// Journal is an in-memory implementation of settlementjournal.Journal.
// It is safe for concurrent use.
type Journal struct {
	mu    sync.RWMutex
	byKey map[string]settlementjournal.Attempt
}

func NewJournal() *Journal {
	return &Journal{byKey: make(map[string]settlementjournal.Attempt)}
}

func (j *Journal) Begin(ctx context.Context, a settlementjournal.Attempt) error {
	_ = ctx
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.byKey[a.Key]; ok {
		return settlementjournal.ErrAlreadyExists
	}
	j.byKey[a.Key] = a
	return nil
}

func (j *Journal) SetState(ctx context.Context, key string, s settlementjournal.State, at time.Time) error {
	_ = ctx
	j.mu.Lock()
	defer j.mu.Unlock()
	a, ok := j.byKey[key]
	if !ok {
		return settlementjournal.ErrNotFound
	}
	a.State = s
	a.UpdatedAt = at
	j.byKey[key] = a
	return nil
}

func (j *Journal) Get(ctx context.Context, key string) (settlementjournal.Attempt, error) {
	_ = ctx
	j.mu.RLock()
	defer j.mu.RUnlock()
	a, ok := j.byKey[key]
	if !ok {
		return settlementjournal.Attempt{}, settlementjournal.ErrNotFound
	}
	return a, nil
}

func (j *Journal) StuckDebits(ctx context.Context, cutoff time.Time) ([]settlementjournal.Attempt, error) {
	_ = ctx
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]settlementjournal.Attempt, 0)
	for _, a := range j.byKey {
		if a.State == settlementjournal.StateDebited && !a.UpdatedAt.After(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}
