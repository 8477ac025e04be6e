package shops

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface.
// Its contents are lost on restart.
type InMemoryRepo struct {
	mu          sync.RWMutex
	credentials map[string]*Credential
	now         func() time.Time
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		credentials: make(map[string]*Credential),
		now:         time.Now,
	}
}

func (r *InMemoryRepo) Upsert(_ context.Context, cred *Credential) error {
	if cred == nil {
		return errors.New("credential cannot be nil")
	}
	if cred.Shop == "" {
		return errors.New("shop is required")
	}
	if cred.AccessToken == "" {
		return errors.New("access token is required")
	}

	stored := *cred
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.ConnectedAt.IsZero() {
		stored.ConnectedAt = r.now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.credentials[stored.Shop] = &stored
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, shop string) (*Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, ok := r.credentials[shop]
	if !ok {
		return nil, ErrNotFound
	}
	out := *cred
	return &out, nil
}

func (r *InMemoryRepo) Delete(_ context.Context, shop string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.credentials, shop)
	return nil
}

func (r *InMemoryRepo) Current(ctx context.Context) (*Credential, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return all[0], nil
}

// List returns copies ordered newest connection first.
func (r *InMemoryRepo) List(_ context.Context) ([]*Credential, error) {
	r.mu.RLock()
	out := make([]*Credential, 0, len(r.credentials))
	for _, cred := range r.credentials {
		c := *cred
		out = append(out, &c)
	}
	r.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(creds []*Credential) {
	sort.Slice(creds, func(i, j int) bool {
		if creds[i].ConnectedAt.Equal(creds[j].ConnectedAt) {
			return creds[i].Shop < creds[j].Shop
		}
		return creds[i].ConnectedAt.After(creds[j].ConnectedAt)
	})
}

var _ Repo = (*InMemoryRepo)(nil)
