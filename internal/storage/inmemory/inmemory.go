// Package inmemory is the process-local storage backend. It serves two
// roles: the fallback store for identities without a durable backend row,
// and the storage used when no database URI is configured.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stakeplay/stakeplay/internal/domain/claims"
	"github.com/stakeplay/stakeplay/internal/domain/deposits"
	"github.com/stakeplay/stakeplay/internal/domain/rewards"
	"github.com/stakeplay/stakeplay/internal/domain/staking"
	"github.com/stakeplay/stakeplay/internal/domain/users"
	"github.com/stakeplay/stakeplay/internal/domain/wallet"
	"github.com/stakeplay/stakeplay/internal/domain/withdrawals"
	"github.com/stakeplay/stakeplay/internal/storage"
)

var _ storage.Storage = (*Storage)(nil)

type claimRecord struct {
	lastClaimAt time.Time
	nextClaimAt time.Time
	total       decimal.Decimal
	count       int64
}

type vipRecord struct {
	status         users.VIPStatus
	bonusClaimedOn string
}

type UserStore struct {
	users map[string]*users.User
	mu    sync.Mutex
}

type VIPStore struct {
	records map[string]*vipRecord
	mu      sync.Mutex
}

type WalletStore struct {
	balances map[string]map[rewards.Token]decimal.Decimal
	mu       sync.Mutex
}

type ClaimStore struct {
	records map[string]map[string]*claimRecord
	mu      sync.Mutex
}

type WithdrawalStore struct {
	withdrawals map[string][]*withdrawals.Withdrawal
	mu          sync.Mutex
}

type DepositStore struct {
	deposits map[string][]*deposits.Deposit
	mu       sync.Mutex
}

type StakingStore struct {
	positions map[string][]*staking.Position
	mu        sync.Mutex
}

type Storage struct {
	UserStore       UserStore
	VIPStore        VIPStore
	WalletStore     WalletStore
	ClaimStore      ClaimStore
	WithdrawalStore WithdrawalStore
	DepositStore    DepositStore
	StakingStore    StakingStore
}

func NewStorage() *Storage {
	return &Storage{
		UserStore: UserStore{
			users: make(map[string]*users.User),
		},
		VIPStore: VIPStore{
			records: make(map[string]*vipRecord),
		},
		WalletStore: WalletStore{
			balances: make(map[string]map[rewards.Token]decimal.Decimal),
		},
		ClaimStore: ClaimStore{
			records: make(map[string]map[string]*claimRecord),
		},
		WithdrawalStore: WithdrawalStore{
			withdrawals: make(map[string][]*withdrawals.Withdrawal),
		},
		DepositStore: DepositStore{
			deposits: make(map[string][]*deposits.Deposit),
		},
		StakingStore: StakingStore{
			positions: make(map[string][]*staking.Position),
		},
	}
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

func (s *Storage) CreateUser(_ context.Context, usr *users.User) error {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	if _, ok := s.UserStore.users[usr.Login()]; ok {
		return storage.ErrUserAlreadyExists
	}

	s.UserStore.users[usr.Login()] = usr

	return nil
}

func (s *Storage) GetUserByLogin(_ context.Context, login string) (*users.User, error) {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	usr, ok := s.UserStore.users[login]
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	return usr, nil
}

func (s *Storage) SetVIPStatus(_ context.Context, userID string, vip users.VIPStatus) error {
	s.VIPStore.mu.Lock()
	defer s.VIPStore.mu.Unlock()

	rec, ok := s.VIPStore.records[userID]
	if !ok {
		rec = &vipRecord{}
		s.VIPStore.records[userID] = rec
	}

	rec.status = vip

	return nil
}

func (s *Storage) GetVIPStatus(_ context.Context, userID string) (users.VIPStatus, error) {
	s.VIPStore.mu.Lock()
	defer s.VIPStore.mu.Unlock()

	rec, ok := s.VIPStore.records[userID]
	if !ok {
		return users.VIPStatus{}, nil
	}

	return rec.status, nil
}

func (s *Storage) GetWallet(_ context.Context, userID string) (*wallet.Wallet, error) {
	s.WalletStore.mu.Lock()
	defer s.WalletStore.mu.Unlock()

	balances := make(map[rewards.Token]decimal.Decimal, len(s.WalletStore.balances[userID]))
	for token, amount := range s.WalletStore.balances[userID] {
		balances[token] = amount
	}

	wlt, err := wallet.NewWallet(userID, balances)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return wlt, nil
}

func (s *Storage) CreditWallet(_ context.Context, userID string, token rewards.Token, amount decimal.Decimal) error {
	s.WalletStore.mu.Lock()
	defer s.WalletStore.mu.Unlock()

	s.creditLocked(userID, token, amount)

	return nil
}

// creditLocked applies a clamped-at-zero balance delta. Callers must hold
// WalletStore.mu.
func (s *Storage) creditLocked(userID string, token rewards.Token, amount decimal.Decimal) {
	balances, ok := s.WalletStore.balances[userID]
	if !ok {
		balances = make(map[rewards.Token]decimal.Decimal)
		s.WalletStore.balances[userID] = balances
	}

	balances[token] = wallet.Clamp(balances[token], amount)
}

func (s *Storage) GetClaimState(_ context.Context, userID, stream string) (*claims.State, error) {
	s.ClaimStore.mu.Lock()
	defer s.ClaimStore.mu.Unlock()

	rec, ok := s.ClaimStore.records[userID][stream]
	if !ok {
		return claims.NewState(stream, time.Time{}, time.Time{}, decimal.Zero, 0), nil
	}

	return claims.NewState(stream, rec.lastClaimAt, rec.nextClaimAt, rec.total, rec.count), nil
}

func (s *Storage) ApplyClaim(_ context.Context, claim *claims.Claim) (*claims.State, error) {
	s.ClaimStore.mu.Lock()
	defer s.ClaimStore.mu.Unlock()

	s.WalletStore.mu.Lock()
	defer s.WalletStore.mu.Unlock()

	userID := claim.UserID()
	streamName := claim.Stream().Name()

	streams, ok := s.ClaimStore.records[userID]
	if !ok {
		streams = make(map[string]*claimRecord)
		s.ClaimStore.records[userID] = streams
	}

	rec, ok := streams[streamName]
	if !ok {
		rec = &claimRecord{total: decimal.Zero}
		streams[streamName] = rec
	}

	if claim.ClaimedAt().Before(rec.nextClaimAt) {
		return nil, storage.ErrClaimNotReady
	}

	rec.lastClaimAt = claim.ClaimedAt()
	rec.nextClaimAt = claim.NextClaimAt()
	rec.total = rec.total.Add(claim.Amount())
	rec.count++

	s.creditLocked(userID, claim.Stream().Token(), claim.Amount())

	return claims.NewState(streamName, rec.lastClaimAt, rec.nextClaimAt, rec.total, rec.count), nil
}

func (s *Storage) ListVIPUsers(_ context.Context, now time.Time) ([]string, error) {
	s.VIPStore.mu.Lock()
	defer s.VIPStore.mu.Unlock()

	var ids []string

	for userID, rec := range s.VIPStore.records {
		if rec.status.Active(now) {
			ids = append(ids, userID)
		}
	}

	sort.Strings(ids)

	return ids, nil
}

func (s *Storage) ApplyDailyBonus(_ context.Context, userID, date string, amount decimal.Decimal) error {
	s.VIPStore.mu.Lock()
	defer s.VIPStore.mu.Unlock()

	s.WalletStore.mu.Lock()
	defer s.WalletStore.mu.Unlock()

	rec, ok := s.VIPStore.records[userID]
	if !ok {
		return storage.ErrUserNotFound
	}

	if rec.bonusClaimedOn == date {
		return storage.ErrBonusAlreadyClaimed
	}

	rec.bonusClaimedOn = date

	s.creditLocked(userID, rewards.TokenCoin, amount)

	return nil
}

func (s *Storage) CreateWithdrawal(_ context.Context, wdr *withdrawals.Withdrawal) error {
	s.WithdrawalStore.mu.Lock()
	defer s.WithdrawalStore.mu.Unlock()

	userID := wdr.UserID()

	s.WithdrawalStore.withdrawals[userID] = append(s.WithdrawalStore.withdrawals[userID], wdr)

	return nil
}

func (s *Storage) GetWithdrawalsByUserID(_ context.Context, userID string) ([]*withdrawals.Withdrawal, error) {
	s.WithdrawalStore.mu.Lock()
	defer s.WithdrawalStore.mu.Unlock()

	wdrs, ok := s.WithdrawalStore.withdrawals[userID]
	if !ok {
		return nil, storage.ErrWithdrawalsNotFound
	}

	sort.Slice(wdrs, func(i, j int) bool {
		return wdrs[i].CreatedAt().After(wdrs[j].CreatedAt())
	})

	return wdrs, nil
}

func (s *Storage) CreateDeposit(_ context.Context, dep *deposits.Deposit) error {
	s.DepositStore.mu.Lock()
	defer s.DepositStore.mu.Unlock()

	userID := dep.UserID()

	s.DepositStore.deposits[userID] = append(s.DepositStore.deposits[userID], dep)

	return nil
}

func (s *Storage) CreateStakingPosition(_ context.Context, pos *staking.Position) error {
	s.StakingStore.mu.Lock()
	defer s.StakingStore.mu.Unlock()

	userID := pos.UserID()

	s.StakingStore.positions[userID] = append(s.StakingStore.positions[userID], pos)

	return nil
}

func (s *Storage) GetStakingPositionsByUserID(_ context.Context, userID string) ([]*staking.Position, error) {
	s.StakingStore.mu.Lock()
	defer s.StakingStore.mu.Unlock()

	positions, ok := s.StakingStore.positions[userID]
	if !ok {
		return nil, storage.ErrStakingNotFound
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].CreatedAt().After(positions[j].CreatedAt())
	})

	return positions, nil
}

func (s *Storage) GetStakingPositionsByStatus(_ context.Context, statuses ...staking.Status) ([]*staking.Position, error) {
	s.StakingStore.mu.Lock()
	defer s.StakingStore.mu.Unlock()

	wanted := make(map[staking.Status]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status] = struct{}{}
	}

	var out []*staking.Position

	for _, positions := range s.StakingStore.positions {
		for _, pos := range positions {
			if _, ok := wanted[pos.Status()]; ok || len(statuses) == 0 {
				out = append(out, pos)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})

	return out, nil
}
