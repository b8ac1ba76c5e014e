//nolint:wrapcheck
package claims

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stakeplay/stakeplay/internal/domain/rewards"
	"github.com/stakeplay/stakeplay/internal/domain/users"
)

// State is the cooldown gate for one (user, stream) pair. The zero state
// means the stream has never been claimed and is claimable.
type State struct {
	stream      string
	lastClaimAt time.Time
	nextClaimAt time.Time
	total       decimal.Decimal
	count       int64
}

func NewState(stream string, lastClaimAt, nextClaimAt time.Time, total decimal.Decimal, count int64) *State {
	return &State{
		stream:      stream,
		lastClaimAt: lastClaimAt,
		nextClaimAt: nextClaimAt,
		total:       total,
		count:       count,
	}
}

func (s *State) Stream() string {
	return s.stream
}

func (s *State) LastClaimAt() time.Time {
	return s.lastClaimAt
}

func (s *State) NextClaimAt() time.Time {
	return s.nextClaimAt
}

func (s *State) Total() decimal.Decimal {
	return s.total
}

func (s *State) Count() int64 {
	return s.count
}

// CanClaim reports whether the cooldown has elapsed. It has no side
// effects; the actual claim transition is a conditional storage update.
func (s *State) CanClaim(now time.Time) bool {
	return !now.Before(s.nextClaimAt)
}

// Remaining returns the wait left before the stream becomes claimable,
// or zero if it already is.
func (s *State) Remaining(now time.Time) time.Duration {
	if s.CanClaim(now) {
		return 0
	}

	return s.nextClaimAt.Sub(now)
}

// Claim is one reward claim ready to be applied to storage.
type Claim struct {
	userID      string
	stream      rewards.Stream
	amount      decimal.Decimal
	claimedAt   time.Time
	nextClaimAt time.Time
}

func NewClaim(userID string, stream rewards.Stream, amount decimal.Decimal, claimedAt time.Time) (*Claim, error) {
	if err := users.ValidateID(userID); err != nil {
		return nil, err
	}

	return &Claim{
		userID:      userID,
		stream:      stream,
		amount:      amount,
		claimedAt:   claimedAt,
		nextClaimAt: claimedAt.Add(stream.Cooldown()),
	}, nil
}

func (c *Claim) UserID() string {
	return c.userID
}

func (c *Claim) Stream() rewards.Stream {
	return c.stream
}

func (c *Claim) Amount() decimal.Decimal {
	return c.amount
}

func (c *Claim) ClaimedAt() time.Time {
	return c.claimedAt
}

func (c *Claim) NextClaimAt() time.Time {
	return c.nextClaimAt
}
