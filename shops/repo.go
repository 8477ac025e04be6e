package shops

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("shop credential not found")

// Repo stores one credential per shop. Implementations must be safe for concurrent use.
type Repo interface {
	Upsert(ctx context.Context, cred *Credential) error
	Get(ctx context.Context, shop string) (*Credential, error)
	Delete(ctx context.Context, shop string) error
	// Current returns the most recently connected credential, or ErrNotFound.
	Current(ctx context.Context) (*Credential, error)
	List(ctx context.Context) ([]*Credential, error)
}
