//nolint:wrapcheck
package staking

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stakeplay/stakeplay/internal/domain/users"
)

var (
	ErrAmountNotPositive = errors.New("staking amount must be positive")
	ErrPlanUnknown       = errors.New("staking plan unknown")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

func (s Status) String() string {
	return string(s)
}

// Plan is a staking duration with its daily yield percentage.
type Plan struct {
	name      string
	days      int
	dailyRate decimal.Decimal
}

var plans = []Plan{
	{name: "flex", days: 7, dailyRate: decimal.NewFromFloat(0.003)},
	{name: "standard", days: 30, dailyRate: decimal.NewFromFloat(0.005)},
	{name: "locked", days: 90, dailyRate: decimal.NewFromFloat(0.008)},
}

func LookupPlan(name string) (Plan, error) {
	for _, p := range plans {
		if p.name == name {
			return p, nil
		}
	}

	return Plan{}, ErrPlanUnknown
}

func (p Plan) Name() string {
	return p.name
}

func (p Plan) Days() int {
	return p.days
}

func (p Plan) DailyRate() decimal.Decimal {
	return p.dailyRate
}

// Position is one staked amount on a plan. Positions start pending and
// are verified or rejected when the backing deposit settles.
type Position struct {
	id        string
	userID    string
	plan      Plan
	amount    decimal.Decimal
	status    Status
	createdAt time.Time
	endsAt    time.Time
}

func CreatePosition(userID, planName string, amount decimal.Decimal) (*Position, error) {
	if err := users.ValidateID(userID); err != nil {
		return nil, err
	}

	if !amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}

	plan, err := LookupPlan(planName)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	return &Position{
		id:        uuid.NewString(),
		userID:    userID,
		plan:      plan,
		amount:    amount,
		status:    StatusPending,
		createdAt: now,
		endsAt:    now.AddDate(0, 0, plan.days),
	}, nil
}

// NewPosition restores a position from stored fields.
func NewPosition(id, userID, planName string, amount decimal.Decimal,
	status Status, createdAt, endsAt time.Time,
) (*Position, error) {
	plan, err := LookupPlan(planName)
	if err != nil {
		return nil, err
	}

	return &Position{
		id:        id,
		userID:    userID,
		plan:      plan,
		amount:    amount,
		status:    status,
		createdAt: createdAt,
		endsAt:    endsAt,
	}, nil
}

func (p *Position) ID() string {
	return p.id
}

func (p *Position) UserID() string {
	return p.userID
}

func (p *Position) Plan() Plan {
	return p.plan
}

func (p *Position) Amount() decimal.Decimal {
	return p.amount
}

func (p *Position) Status() Status {
	return p.status
}

func (p *Position) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Position) EndsAt() time.Time {
	return p.endsAt
}

// DailyReward is the coin amount a verified position accrues per day.
func (p *Position) DailyReward() decimal.Decimal {
	return p.amount.Mul(p.plan.dailyRate)
}
