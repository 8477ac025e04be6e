package shops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const defaultRedisKey = "shopify_bulkexport:credentials"

// RedisRepo keeps every credential as a sealed JSON blob in one Redis hash keyed by shop.
type RedisRepo struct {
	client *redis.Client
	sealer *Sealer
	key    string
	now    func() time.Time
}

func NewRedisRepo(client *redis.Client, sealer *Sealer) *RedisRepo {
	return &RedisRepo{
		client: client,
		sealer: sealer,
		key:    defaultRedisKey,
		now:    time.Now,
	}
}

func (r *RedisRepo) Upsert(ctx context.Context, cred *Credential) error {
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

	plain, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	sealed, err := r.sealer.Seal(plain)
	if err != nil {
		return err
	}
	if err := r.client.HSet(ctx, r.key, stored.Shop, sealed).Err(); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, shop string) (*Credential, error) {
	sealed, err := r.client.HGet(ctx, r.key, shop).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential: %w", err)
	}
	return r.open(sealed)
}

func (r *RedisRepo) Delete(ctx context.Context, shop string) error {
	if err := r.client.HDel(ctx, r.key, shop).Err(); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

func (r *RedisRepo) Current(ctx context.Context) (*Credential, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return all[0], nil
}

func (r *RedisRepo) List(ctx context.Context) ([]*Credential, error) {
	entries, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	out := make([]*Credential, 0, len(entries))
	for _, sealed := range entries {
		cred, err := r.open([]byte(sealed))
		if err != nil {
			return nil, err
		}
		out = append(out, cred)
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *RedisRepo) open(sealed []byte) (*Credential, error) {
	plain, err := r.sealer.Open(sealed)
	if err != nil {
		return nil, err
	}
	var cred Credential
	if err := json.Unmarshal(plain, &cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &cred, nil
}

var _ Repo = (*RedisRepo)(nil)
