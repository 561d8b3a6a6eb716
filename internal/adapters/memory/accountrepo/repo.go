package accountrepo

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rideway-co/marketplace-api/internal/domain"
	"github.com/rideway-co/marketplace-api/internal/ports/out/accountrepo"
)

// Repo is an in-memory implementation of accountrepo.Repository.
// It is safe for concurrent use.
//
// Adjust serializes per username through a lock map, so a concurrent pair of
// debits against one account can never both pass the negative-balance check
// against a stale read. Different accounts adjust fully in parallel.
type Repo struct {
	mu       sync.RWMutex
	byUser   map[domain.Username]decimal.Decimal
	deposits []accountrepo.Deposit

	lockMu sync.Mutex
	locks  map[domain.Username]*sync.Mutex
}

func NewRepo() *Repo {
	return &Repo{
		byUser: make(map[domain.Username]decimal.Decimal),
		locks:  make(map[domain.Username]*sync.Mutex),
	}
}

func (r *Repo) Create(ctx context.Context, a domain.Account) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUser[a.Username]; ok {
		return accountrepo.ErrAlreadyExists
	}
	r.byUser[a.Username] = domain.RoundAmount(a.Balance)
	return nil
}

func (r *Repo) Get(ctx context.Context, username domain.Username) (domain.Account, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	bal, ok := r.byUser[username]
	if !ok {
		return domain.Account{}, accountrepo.ErrNotFound
	}
	return domain.Account{Username: username, Balance: bal}, nil
}

func (r *Repo) Adjust(ctx context.Context, username domain.Username, delta decimal.Decimal) (decimal.Decimal, error) {
	_ = ctx

	// Per-account critical section: the read, the check and the write are
	// one atomic unit for this username.
	lock := r.accountLock(username)
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	bal, ok := r.byUser[username]
	r.mu.RUnlock()
	if !ok {
		return decimal.Zero, accountrepo.ErrNotFound
	}

	next := domain.RoundAmount(bal.Add(delta))
	if next.IsNegative() {
		return decimal.Zero, accountrepo.ErrInsufficientFunds
	}

	r.mu.Lock()
	r.byUser[username] = next
	r.mu.Unlock()
	return next, nil
}

func (r *Repo) AppendDeposit(ctx context.Context, d accountrepo.Deposit) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deposits = append(r.deposits, d)
	return nil
}

func (r *Repo) accountLock(username domain.Username) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	if _, ok := r.locks[username]; !ok {
		r.locks[username] = &sync.Mutex{}
	}
	return r.locks[username]
}
