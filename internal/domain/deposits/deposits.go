//nolint:wrapcheck
package deposits

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stakeplay/stakeplay/internal/domain/users"
)

var ErrAmountNotPositive = errors.New("deposit amount must be positive")

type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// Deposit records an incoming payment. Deposits created from a verified
// payment callback start verified; manual ones start pending.
type Deposit struct {
	id        string
	userID    string
	amount    decimal.Decimal
	status    Status
	createdAt time.Time
}

func CreateDeposit(userID string, amount decimal.Decimal, status Status) (*Deposit, error) {
	if err := users.ValidateID(userID); err != nil {
		return nil, err
	}

	if !amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}

	return &Deposit{
		id:        uuid.NewString(),
		userID:    userID,
		amount:    amount,
		status:    status,
		createdAt: time.Now(),
	}, nil
}

func (d *Deposit) ID() string {
	return d.id
}

func (d *Deposit) UserID() string {
	return d.userID
}

func (d *Deposit) Amount() decimal.Decimal {
	return d.amount
}

func (d *Deposit) Status() Status {
	return d.status
}

func (d *Deposit) CreatedAt() time.Time {
	return d.createdAt
}
