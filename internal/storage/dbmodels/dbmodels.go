package dbmodels

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           string
	Login        string
	PasswordHash string
}

type VIPStatus struct {
	UserID         string
	Tier           string
	ExpiresAt      time.Time
	BonusClaimedOn string
}

type WalletBalance struct {
	UserID string
	Token  string
	Amount decimal.Decimal
}

type ClaimState struct {
	UserID      string
	Stream      string
	LastClaimAt time.Time
	NextClaimAt time.Time
	Total       decimal.Decimal
	Count       int64
}

type Withdrawal struct {
	ID          string
	UserID      string
	Amount      decimal.Decimal
	Currency    string
	Description string
	Status      string
	CreatedAt   time.Time
}

type Deposit struct {
	ID        string
	UserID    string
	Amount    decimal.Decimal
	Status    string
	CreatedAt time.Time
}

type StakingPosition struct {
	ID        string
	UserID    string
	Plan      string
	Amount    decimal.Decimal
	Status    string
	CreatedAt time.Time
	EndsAt    time.Time
}
