package sweeper

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakeplay/stakeplay/internal/domain/rewards"
	"github.com/stakeplay/stakeplay/internal/domain/users"
	"github.com/stakeplay/stakeplay/internal/storage/inmemory"
)

func newTestSweeper(store *inmemory.Storage, now time.Time) *Sweeper {
	return New(store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithBonusAmount(decimal.NewFromFloat(0.5)),
		WithNow(func() time.Time { return now }),
	)
}

func TestSweepCreditsOncePerDate(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStorage()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.SetVIPStatus(ctx, "user-a", users.NewVIPStatus("vip", now.Add(72*time.Hour))))

	swp := newTestSweeper(store, now)

	results, err := swp.Sweep(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Credited)

	// Second pass on the same date is a no-op.
	results, err = swp.Sweep(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Credited)
	assert.NoError(t, results[0].Err)

	wlt, err := store.GetWallet(ctx, "user-a")
	require.NoError(t, err)
	assert.True(t, wlt.Balance(rewards.TokenCoin).Equal(decimal.NewFromFloat(0.5)))
}

func TestSweepCreditsAgainNextDate(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStorage()
	now := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)

	require.NoError(t, store.SetVIPStatus(ctx, "user-a", users.NewVIPStatus("vip", now.Add(72*time.Hour))))

	_, err := newTestSweeper(store, now).Sweep(ctx)
	require.NoError(t, err)

	// Half an hour later the UTC date has rolled over.
	_, err = newTestSweeper(store, now.Add(time.Hour)).Sweep(ctx)
	require.NoError(t, err)

	wlt, err := store.GetWallet(ctx, "user-a")
	require.NoError(t, err)
	assert.True(t, wlt.Balance(rewards.TokenCoin).Equal(decimal.NewFromFloat(1.0)))
}

func TestSweepSkipsExpiredVIP(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStorage()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.SetVIPStatus(ctx, "user-active", users.NewVIPStatus("vip", now.Add(time.Hour))))
	require.NoError(t, store.SetVIPStatus(ctx, "user-expired", users.NewVIPStatus("vip", now.Add(-time.Hour))))

	results, err := newTestSweeper(store, now).Sweep(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "user-active", results[0].UserID)

	wlt, err := store.GetWallet(ctx, "user-expired")
	require.NoError(t, err)
	assert.True(t, wlt.Balance(rewards.TokenCoin).IsZero())
}

func TestSweepMultipleUsers(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStorage()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	for _, userID := range []string{"user-a", "user-b", "user-c"} {
		require.NoError(t, store.SetVIPStatus(ctx, userID, users.NewVIPStatus("vip", now.Add(time.Hour))))
	}

	results, err := newTestSweeper(store, now).Sweep(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, res := range results {
		assert.True(t, res.Credited, "user %s not credited", res.UserID)
	}
}
