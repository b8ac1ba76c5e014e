package models

import (
	"github.com/shopspring/decimal"
)

type UserRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type BalanceResponse struct {
	Balances map[string]float64 `json:"balances"`
}

type RewardStatusResponse struct {
	Stream           string  `json:"stream"`
	CanClaim         bool    `json:"can_claim"`
	RemainingSeconds float64 `json:"remaining_seconds"`
	NextClaimAt      string  `json:"next_claim_at,omitempty"`
	TotalClaimed     float64 `json:"total_claimed"`
	ClaimCount       int64   `json:"claim_count"`
}

type ClaimResponse struct {
	Stream           string  `json:"stream"`
	Amount           float64 `json:"amount"`
	NextClaimAt      string  `json:"next_claim_at"`
	ClaimCount       int64   `json:"claim_count"`
	MilestoneReached bool    `json:"milestone_reached"`
}

type WithdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

type WithdrawalResponse struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

type StakingRequest struct {
	Plan   string          `json:"plan"`
	Amount decimal.Decimal `json:"amount"`
}

type StakingResponse struct {
	ID        string  `json:"id"`
	Plan      string  `json:"plan"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
	EndsAt    string  `json:"ends_at"`
}

type PaymentCallbackRequest struct {
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Signature string          `json:"signature"`
}

type PaymentCallbackResponse struct {
	UserID    string `json:"user_id"`
	Tier      string `json:"tier"`
	ExpiresAt string `json:"expires_at"`
}
