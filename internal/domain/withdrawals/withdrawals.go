//nolint:wrapcheck
package withdrawals

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stakeplay/stakeplay/internal/domain/users"
)

var (
	ErrAmountNotPositive = errors.New("withdrawal amount must be positive")
	ErrCurrencyEmpty     = errors.New("withdrawal currency is empty")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Withdrawal is a user's request to pay out part of a balance. New
// requests start pending; settlement happens outside this service.
type Withdrawal struct {
	id          string
	userID      string
	amount      decimal.Decimal
	currency    string
	description string
	status      Status
	createdAt   time.Time
}

func CreateWithdrawal(userID string, amount decimal.Decimal, currency, description string) (*Withdrawal, error) {
	if err := users.ValidateID(userID); err != nil {
		return nil, err
	}

	if !amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}

	if currency == "" {
		return nil, ErrCurrencyEmpty
	}

	return &Withdrawal{
		id:          uuid.NewString(),
		userID:      userID,
		amount:      amount,
		currency:    currency,
		description: description,
		status:      StatusPending,
		createdAt:   time.Now(),
	}, nil
}

// NewWithdrawal restores a withdrawal from stored fields.
func NewWithdrawal(id, userID string, amount decimal.Decimal, currency, description string,
	status Status, createdAt time.Time,
) (*Withdrawal, error) {
	if err := users.ValidateID(userID); err != nil {
		return nil, err
	}

	return &Withdrawal{
		id:          id,
		userID:      userID,
		amount:      amount,
		currency:    currency,
		description: description,
		status:      status,
		createdAt:   createdAt,
	}, nil
}

func (w *Withdrawal) ID() string {
	return w.id
}

func (w *Withdrawal) UserID() string {
	return w.userID
}

func (w *Withdrawal) Amount() decimal.Decimal {
	return w.amount
}

func (w *Withdrawal) Currency() string {
	return w.currency
}

func (w *Withdrawal) Description() string {
	return w.description
}

func (w *Withdrawal) Status() Status {
	return w.status
}

func (w *Withdrawal) CreatedAt() time.Time {
	return w.createdAt
}
