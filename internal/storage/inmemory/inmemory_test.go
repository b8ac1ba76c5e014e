package inmemory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakeplay/stakeplay/internal/domain/claims"
	"github.com/stakeplay/stakeplay/internal/domain/rewards"
	"github.com/stakeplay/stakeplay/internal/domain/users"
	"github.com/stakeplay/stakeplay/internal/storage"
)

const testUserID = "2b9c7e1f-5a3d-4c8b-9e6f-0a1b2c3d4e5f"

func TestApplyClaimCooldown(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	claim, err := claims.NewClaim(testUserID, rewards.Faucet, decimal.NewFromFloat(0.01), now)
	require.NoError(t, err)

	state, err := store.ApplyClaim(ctx, claim)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.Count())
	assert.Equal(t, now.Add(rewards.Faucet.Cooldown()), state.NextClaimAt())

	// Within the cooldown window the conditional update must refuse.
	early, err := claims.NewClaim(testUserID, rewards.Faucet, decimal.NewFromFloat(0.02), now.Add(5*time.Minute))
	require.NoError(t, err)

	_, err = store.ApplyClaim(ctx, early)
	assert.ErrorIs(t, err, storage.ErrClaimNotReady)

	// At exactly now+period the stream is claimable again.
	late, err := claims.NewClaim(testUserID, rewards.Faucet, decimal.NewFromFloat(0.02), now.Add(rewards.Faucet.Cooldown()))
	require.NoError(t, err)

	state, err = store.ApplyClaim(ctx, late)
	require.NoError(t, err)
	assert.Equal(t, int64(2), state.Count())
	assert.True(t, state.Total().Equal(decimal.NewFromFloat(0.03)))

	// The refused claim must not have credited anything.
	wlt, err := store.GetWallet(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, wlt.Balance(rewards.TokenCoin).Equal(decimal.NewFromFloat(0.03)))
}

func TestApplyClaimConcurrent(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first, err := claims.NewClaim(testUserID, rewards.Faucet, decimal.NewFromFloat(0.01), now)
	require.NoError(t, err)

	second, err := claims.NewClaim(testUserID, rewards.Faucet, decimal.NewFromFloat(0.01), now)
	require.NoError(t, err)

	errs := make(chan error, 2)

	var wg sync.WaitGroup

	for _, claim := range []*claims.Claim{first, second} {
		wg.Add(1)

		go func(c *claims.Claim) {
			defer wg.Done()

			_, err := store.ApplyClaim(ctx, c)
			errs <- err
		}(claim)
	}

	wg.Wait()
	close(errs)

	var succeeded, raceLost int

	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, storage.ErrClaimNotReady):
			raceLost++
		}
	}

	// Exactly one of two simultaneous claims may pass the gate.
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, raceLost)

	wlt, err := store.GetWallet(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, wlt.Balance(rewards.TokenCoin).Equal(decimal.NewFromFloat(0.01)))
}

func TestGetClaimStateNeverClaimed(t *testing.T) {
	store := NewStorage()

	state, err := store.GetClaimState(context.Background(), testUserID, "faucet")
	require.NoError(t, err)

	assert.True(t, state.CanClaim(time.Now()))
	assert.Equal(t, int64(0), state.Count())
	assert.True(t, state.Total().IsZero())
}

func TestCreditWalletClamps(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	require.NoError(t, store.CreditWallet(ctx, testUserID, rewards.TokenCoin, decimal.NewFromFloat(0.00002)))
	require.NoError(t, store.CreditWallet(ctx, testUserID, rewards.TokenCoin, decimal.NewFromFloat(-0.00005)))

	wlt, err := store.GetWallet(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, wlt.Balance(rewards.TokenCoin).IsZero())
}

func TestApplyDailyBonusOncePerDate(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bonus := decimal.NewFromFloat(0.5)

	require.NoError(t, store.SetVIPStatus(ctx, testUserID, users.NewVIPStatus("vip", now.Add(48*time.Hour))))

	require.NoError(t, store.ApplyDailyBonus(ctx, testUserID, "2025-06-01", bonus))

	err := store.ApplyDailyBonus(ctx, testUserID, "2025-06-01", bonus)
	assert.ErrorIs(t, err, storage.ErrBonusAlreadyClaimed)

	require.NoError(t, store.ApplyDailyBonus(ctx, testUserID, "2025-06-02", bonus))

	wlt, err := store.GetWallet(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, wlt.Balance(rewards.TokenCoin).Equal(decimal.NewFromFloat(1.0)))
}

func TestApplyDailyBonusUnknownUser(t *testing.T) {
	store := NewStorage()

	err := store.ApplyDailyBonus(context.Background(), testUserID, "2025-06-01", decimal.NewFromFloat(0.5))
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestListVIPUsersActiveOnly(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SetVIPStatus(ctx, "user-active", users.NewVIPStatus("vip", now.Add(time.Hour))))
	require.NoError(t, store.SetVIPStatus(ctx, "user-expired", users.NewVIPStatus("vip", now.Add(-time.Hour))))
	require.NoError(t, store.SetVIPStatus(ctx, "user-no-tier", users.NewVIPStatus("", now.Add(time.Hour))))

	ids, err := store.ListVIPUsers(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, []string{"user-active"}, ids)
}

func TestCreateUserDuplicate(t *testing.T) {
	store := NewStorage()
	ctx := context.Background()

	usr, err := users.CreateUser("alice", "passwd")
	require.NoError(t, err)

	require.NoError(t, store.CreateUser(ctx, usr))

	dup, err := users.CreateUser("alice", "passwd")
	require.NoError(t, err)

	assert.ErrorIs(t, store.CreateUser(ctx, dup), storage.ErrUserAlreadyExists)
}
