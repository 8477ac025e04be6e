package installstate_test

import (
	"context"
	"testing"
	"time"

	"github.com/ifrederico/shopify-bulkexport/installstate"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("state is single use", func(t *testing.T) {
		repo := installstate.NewInMemoryRepo().WithClock(clock)
		require.NoError(t, repo.Save(ctx, "n0nce", installstate.Pending{Shop: "demo.myshopify.com", CreatedAt: now}, time.Minute))

		pending, err := repo.Consume(ctx, "n0nce")
		require.NoError(t, err)
		require.Equal(t, "demo.myshopify.com", pending.Shop)

		_, err = repo.Consume(ctx, "n0nce")
		require.ErrorIs(t, err, installstate.ErrNotFound)
	})

	t.Run("expired state is rejected", func(t *testing.T) {
		current := now
		repo := installstate.NewInMemoryRepo().WithClock(func() time.Time { return current })
		require.NoError(t, repo.Save(ctx, "n0nce", installstate.Pending{Shop: "demo.myshopify.com"}, time.Minute))

		current = now.Add(time.Minute)
		_, err := repo.Consume(ctx, "n0nce")
		require.ErrorIs(t, err, installstate.ErrNotFound)
	})

	t.Run("save evicts expired states", func(t *testing.T) {
		current := now
		repo := installstate.NewInMemoryRepo().WithClock(func() time.Time { return current })
		require.NoError(t, repo.Save(ctx, "old", installstate.Pending{Shop: "a.myshopify.com"}, time.Second))

		current = now.Add(time.Hour)
		require.NoError(t, repo.Save(ctx, "new", installstate.Pending{Shop: "b.myshopify.com"}, time.Minute))
		require.Equal(t, 1, repo.Len())
	})

	t.Run("refuses new states once full", func(t *testing.T) {
		current := now
		repo := installstate.NewInMemoryRepo().WithClock(func() time.Time { return current }).WithLimit(2)
		require.NoError(t, repo.Save(ctx, "a", installstate.Pending{Shop: "a.myshopify.com"}, time.Minute))
		require.NoError(t, repo.Save(ctx, "b", installstate.Pending{Shop: "b.myshopify.com"}, 2*time.Minute))

		require.ErrorIs(t, repo.Save(ctx, "c", installstate.Pending{Shop: "c.myshopify.com"}, time.Minute), installstate.ErrFull)
		require.Equal(t, 2, repo.Len())

		// overwriting a held state needs no room
		require.NoError(t, repo.Save(ctx, "a", installstate.Pending{Shop: "a.myshopify.com"}, time.Minute))

		// a full repo sweeps before refusing
		current = now.Add(90 * time.Second)
		require.NoError(t, repo.Save(ctx, "c", installstate.Pending{Shop: "c.myshopify.com"}, time.Minute))
		require.Equal(t, 2, repo.Len())

		_, err := repo.Consume(ctx, "a")
		require.ErrorIs(t, err, installstate.ErrNotFound)
		pending, err := repo.Consume(ctx, "b")
		require.NoError(t, err)
		require.Equal(t, "b.myshopify.com", pending.Shop)
	})

	t.Run("sweeps are rate limited while there is room", func(t *testing.T) {
		current := now
		repo := installstate.NewInMemoryRepo().WithClock(func() time.Time { return current })
		require.NoError(t, repo.Save(ctx, "short", installstate.Pending{}, time.Second))

		current = now.Add(2 * time.Second)
		require.NoError(t, repo.Save(ctx, "next", installstate.Pending{}, time.Hour))
		require.Equal(t, 2, repo.Len())

		current = now.Add(2 * time.Minute)
		require.NoError(t, repo.Save(ctx, "later", installstate.Pending{}, time.Minute))
		require.Equal(t, 2, repo.Len())
	})

	t.Run("unknown and empty states", func(t *testing.T) {
		repo := installstate.NewInMemoryRepo()
		_, err := repo.Consume(ctx, "missing")
		require.ErrorIs(t, err, installstate.ErrNotFound)

		_, err = repo.Consume(ctx, "")
		require.Error(t, err)
		require.Error(t, repo.Save(ctx, "", installstate.Pending{}, time.Minute))
		require.Error(t, repo.Save(ctx, "x", installstate.Pending{}, 0))
	})
}
