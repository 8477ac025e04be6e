package installstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultRedisPrefix = "shopify_bulkexport:install_state:"

// RedisRepo stores each state under its own key with a TTL so several server instances
// can share in-flight installs.
type RedisRepo struct {
	client *redis.Client
	prefix string
}

func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{client: client, prefix: defaultRedisPrefix}
}

func (r *RedisRepo) Save(ctx context.Context, state string, pending Pending, ttl time.Duration) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("encode install state: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+state, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set Redis key: %w", err)
	}
	return nil
}

// Consume uses GETDEL so two callbacks racing on one state cannot both succeed.
func (r *RedisRepo) Consume(ctx context.Context, state string) (*Pending, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}
	data, err := r.client.GetDel(ctx, r.prefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read Redis key: %w", err)
	}
	var pending Pending
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("decode install state: %w", err)
	}
	return &pending, nil
}

var _ Repo = (*RedisRepo)(nil)
