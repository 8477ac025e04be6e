package installstate

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	// DefaultLimit caps pending installs held in memory.
	DefaultLimit  = 10000
	sweepInterval = time.Minute
)

type entry struct {
	pending   Pending
	expiresAt time.Time
}

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface.
// Expired entries are swept on Save at most once a minute, or sooner when the repo is
// full. Save fails with ErrFull rather than grow past the limit.
type InMemoryRepo struct {
	mu        sync.Mutex
	states    map[string]entry
	limit     int
	nextSweep time.Time
	now       func() time.Time
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states: make(map[string]entry),
		limit:  DefaultLimit,
		now:    time.Now,
	}
}

// WithLimit caps how many pending installs are held; n <= 0 keeps the current limit.
func (r *InMemoryRepo) WithLimit(n int) *InMemoryRepo {
	if n > 0 {
		r.limit = n
	}
	return r
}

// WithClock replaces the time source; used by tests.
func (r *InMemoryRepo) WithClock(now func() time.Time) *InMemoryRepo {
	r.now = now
	return r
}

func (r *InMemoryRepo) Save(_ context.Context, state string, pending Pending, ttl time.Duration) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	_, exists := r.states[state]
	if !exists && (len(r.states) >= r.limit || !now.Before(r.nextSweep)) {
		r.evictExpired(now)
		r.nextSweep = now.Add(sweepInterval)
	}
	if !exists && len(r.states) >= r.limit {
		return ErrFull
	}
	r.states[state] = entry{pending: pending, expiresAt: now.Add(ttl)}
	return nil
}

func (r *InMemoryRepo) Consume(_ context.Context, state string) (*Pending, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.states[state]
	delete(r.states, state)
	if !ok || !r.now().Before(e.expiresAt) {
		return nil, ErrNotFound
	}
	p := e.pending
	return &p, nil
}

// Len reports stored (possibly expired) states.
func (r *InMemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *InMemoryRepo) evictExpired(now time.Time) {
	for state, e := range r.states {
		if !now.Before(e.expiresAt) {
			delete(r.states, state)
		}
	}
}

var _ Repo = (*InMemoryRepo)(nil)
