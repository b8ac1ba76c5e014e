package claims

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakeplay/stakeplay/internal/domain/rewards"
)

func TestZeroStateClaimable(t *testing.T) {
	state := NewState("faucet", time.Time{}, time.Time{}, decimal.Zero, 0)

	assert.True(t, state.CanClaim(time.Now()))
	assert.Equal(t, time.Duration(0), state.Remaining(time.Now()))
}

func TestCooldownWindow(t *testing.T) {
	claimedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	period := rewards.Faucet.Cooldown()

	claim, err := NewClaim("8c2f0e4a-9c1d-4f6e-b1a7-3d5e8f0a2b4c", rewards.Faucet, decimal.NewFromFloat(0.01), claimedAt)
	require.NoError(t, err)

	state := NewState("faucet", claim.ClaimedAt(), claim.NextClaimAt(), claim.Amount(), 1)

	// Closed on the left, open on the right: blocked for the whole
	// period, claimable exactly when it elapses.
	assert.False(t, state.CanClaim(claimedAt))
	assert.False(t, state.CanClaim(claimedAt.Add(period/2)))
	assert.False(t, state.CanClaim(claimedAt.Add(period-time.Nanosecond)))
	assert.True(t, state.CanClaim(claimedAt.Add(period)))
	assert.True(t, state.CanClaim(claimedAt.Add(period+time.Second)))

	assert.Equal(t, period, state.Remaining(claimedAt))
	assert.Equal(t, time.Duration(0), state.Remaining(claimedAt.Add(period)))
}

func TestZeroCooldownStream(t *testing.T) {
	claimedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	claim, err := NewClaim("8c2f0e4a-9c1d-4f6e-b1a7-3d5e8f0a2b4c", rewards.Click, decimal.NewFromFloat(0.0001), claimedAt)
	require.NoError(t, err)

	// No cooldown: next claim opens at the claim instant itself.
	assert.Equal(t, claimedAt, claim.NextClaimAt())

	state := NewState("click", claim.ClaimedAt(), claim.NextClaimAt(), claim.Amount(), 1)
	assert.True(t, state.CanClaim(claimedAt))
}

func TestNewClaimRequiresUser(t *testing.T) {
	_, err := NewClaim("", rewards.Faucet, decimal.NewFromFloat(0.01), time.Now())
	assert.Error(t, err)
}
