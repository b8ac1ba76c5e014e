package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stakeplay/stakeplay/internal/domain/claims"
	"github.com/stakeplay/stakeplay/internal/domain/deposits"
	"github.com/stakeplay/stakeplay/internal/domain/rewards"
	"github.com/stakeplay/stakeplay/internal/domain/staking"
	"github.com/stakeplay/stakeplay/internal/domain/users"
	"github.com/stakeplay/stakeplay/internal/domain/wallet"
	"github.com/stakeplay/stakeplay/internal/domain/withdrawals"
	"github.com/stakeplay/stakeplay/internal/identity"
)

var (
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrClaimNotReady       = errors.New("claim not ready: cooldown has not elapsed")
	ErrBonusAlreadyClaimed = errors.New("daily bonus already claimed for date")
	ErrWithdrawalsNotFound = errors.New("withdrawals not found")
	ErrStakingNotFound     = errors.New("staking positions not found")
)

type UserStorage interface {
	CreateUser(ctx context.Context, usr *users.User) error
	GetUserByLogin(ctx context.Context, login string) (*users.User, error)
	SetVIPStatus(ctx context.Context, userID string, vip users.VIPStatus) error
	GetVIPStatus(ctx context.Context, userID string) (users.VIPStatus, error)
}

type WalletStorage interface {
	GetWallet(ctx context.Context, userID string) (*wallet.Wallet, error)
	CreditWallet(ctx context.Context, userID string, token rewards.Token, amount decimal.Decimal) error
}

type ClaimStorage interface {
	// GetClaimState returns the cooldown state for one (user, stream).
	// A pair that has never claimed gets a zero, claimable state.
	GetClaimState(ctx context.Context, userID, stream string) (*claims.State, error)

	// ApplyClaim atomically advances the cooldown, increments the stream
	// counter and total, and credits the reward. The update is conditional
	// on the stored cooldown having elapsed at the claim time; a claim
	// that loses that race gets ErrClaimNotReady. Returns the state after
	// the claim.
	ApplyClaim(ctx context.Context, claim *claims.Claim) (*claims.State, error)
}

type BonusStorage interface {
	// ListVIPUsers returns the IDs of users whose VIP status is active at
	// the given time.
	ListVIPUsers(ctx context.Context, now time.Time) ([]string, error)

	// ApplyDailyBonus credits the bonus and stamps the UTC date marker in
	// one conditional update. Returns ErrBonusAlreadyClaimed when the
	// marker already equals date.
	ApplyDailyBonus(ctx context.Context, userID, date string, amount decimal.Decimal) error
}

type WithdrawalStorage interface {
	CreateWithdrawal(ctx context.Context, wdr *withdrawals.Withdrawal) error
	GetWithdrawalsByUserID(ctx context.Context, userID string) ([]*withdrawals.Withdrawal, error)
}

type DepositStorage interface {
	CreateDeposit(ctx context.Context, dep *deposits.Deposit) error
}

type StakingStorage interface {
	CreateStakingPosition(ctx context.Context, pos *staking.Position) error
	GetStakingPositionsByUserID(ctx context.Context, userID string) ([]*staking.Position, error)
	GetStakingPositionsByStatus(ctx context.Context, statuses ...staking.Status) ([]*staking.Position, error)
}

type Storage interface {
	UserStorage
	WalletStorage
	ClaimStorage
	BonusStorage
	WithdrawalStorage
	DepositStorage
	StakingStorage
	Close() error
	Ping(ctx context.Context) error
}

func NewStorage(store Storage) Storage {
	return store
}

// Selector picks the store a resolved identity lives in: the shared
// durable store for UUID identities, the process-local fallback for
// everyone else. The choice is made once per request here instead of
// branching inside every operation.
type Selector struct {
	durable Storage
	local   Storage
}

func NewSelector(durable, local Storage) *Selector {
	return &Selector{
		durable: durable,
		local:   local,
	}
}

func (s *Selector) For(ident identity.Identity) Storage {
	if ident.Durable() {
		return s.durable
	}

	return s.local
}

// Durable returns the shared store the sweeper iterates over.
func (s *Selector) Durable() Storage {
	return s.durable
}
