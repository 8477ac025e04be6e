// Package installstate persists the OAuth state nonce issued when an install begins so the
// callback can prove it answers a request this server made.
package installstate

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("install state not found or expired")
	ErrFull     = errors.New("too many pending installs")
)

// Pending is what the server remembers about an install it redirected to Shopify.
type Pending struct {
	Shop      string    `json:"shop"`
	CreatedAt time.Time `json:"created_at"`
}

type Repo interface {
	Save(ctx context.Context, state string, pending Pending, ttl time.Duration) error
	// Consume returns the pending install and removes it; a state can be used once.
	Consume(ctx context.Context, state string) (*Pending, error)
}
