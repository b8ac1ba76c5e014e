package rewards

import (
	"errors"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

var ErrStreamUnknown = errors.New("reward stream unknown")

// DisplayPrecision is the number of decimal places reward amounts are
// rounded to.
const DisplayPrecision = 5

// Token is a named balance counter a stream pays into.
type Token string

const (
	TokenCoin Token = "coin"
	TokenSpin Token = "spin"
)

// Stream describes a named reward source with its own cooldown, amount
// range and milestone interval.
type Stream struct {
	name              string
	token             Token
	cooldown          time.Duration
	minAmount         decimal.Decimal
	maxAmount         decimal.Decimal
	milestoneInterval int64
	milestoneToken    Token
	milestoneAmount   decimal.Decimal
}

var (
	// Faucet pays a small coin amount every 15 minutes.
	Faucet = Stream{
		name:              "faucet",
		token:             TokenCoin,
		cooldown:          15 * time.Minute,
		minAmount:         decimal.NewFromFloat(0.001),
		maxAmount:         decimal.NewFromFloat(0.05),
		milestoneInterval: 10,
		milestoneToken:    TokenSpin,
		milestoneAmount:   decimal.NewFromInt(1),
	}

	// Click pays a tiny coin amount per click with no cooldown and grants
	// a free spin every 25 clicks.
	Click = Stream{
		name:              "click",
		token:             TokenCoin,
		cooldown:          0,
		minAmount:         decimal.NewFromFloat(0.00001),
		maxAmount:         decimal.NewFromFloat(0.0005),
		milestoneInterval: 25,
		milestoneToken:    TokenSpin,
		milestoneAmount:   decimal.NewFromInt(1),
	}
)

func Lookup(name string) (Stream, error) {
	switch name {
	case Faucet.name:
		return Faucet, nil
	case Click.name:
		return Click, nil
	default:
		return Stream{}, ErrStreamUnknown
	}
}

func (s Stream) Name() string {
	return s.name
}

func (s Stream) Token() Token {
	return s.token
}

func (s Stream) Cooldown() time.Duration {
	return s.cooldown
}

func (s Stream) MinAmount() decimal.Decimal {
	return s.minAmount
}

func (s Stream) MaxAmount() decimal.Decimal {
	return s.maxAmount
}

func (s Stream) MilestoneInterval() int64 {
	return s.milestoneInterval
}

func (s Stream) MilestoneToken() Token {
	return s.milestoneToken
}

func (s Stream) MilestoneAmount() decimal.Decimal {
	return s.milestoneAmount
}

// Generator draws reward amounts from a stream's range. The randomness
// source is injected so tests can seed or stub it.
type Generator struct {
	rnd *rand.Rand
}

func NewGenerator(src rand.Source) *Generator {
	return &Generator{
		rnd: rand.New(src), //nolint:gosec // game rewards, not cryptography
	}
}

// Generate draws a uniformly distributed amount in [min, max] rounded to
// DisplayPrecision decimal places.
func (g *Generator) Generate(stream Stream) decimal.Decimal {
	span := stream.maxAmount.Sub(stream.minAmount)

	drawn := stream.minAmount.Add(span.Mul(decimal.NewFromFloat(g.rnd.Float64())))

	return drawn.Round(DisplayPrecision)
}

// MilestoneReached reports whether cur landed exactly on a positive
// multiple of interval. A counter that jumps over a boundary without
// landing on it does not trigger, and an unchanged counter never
// retriggers.
func MilestoneReached(prev, cur, interval int64) bool {
	if interval <= 0 || cur <= 0 {
		return false
	}

	return cur%interval == 0 && cur != prev
}
