//nolint:wrapcheck
package wallet

import (
	"github.com/shopspring/decimal"

	"github.com/stakeplay/stakeplay/internal/domain/rewards"
	"github.com/stakeplay/stakeplay/internal/domain/users"
)

// Wallet holds a user's token balances. Balances never go negative:
// a debit that would overdraw clamps the balance to zero instead of
// failing. Amounts keep full precision internally; rounding to
// rewards.DisplayPrecision happens only at the display edge.
type Wallet struct {
	userID   string
	balances map[rewards.Token]decimal.Decimal
}

func NewWallet(userID string, balances map[rewards.Token]decimal.Decimal) (*Wallet, error) {
	if err := users.ValidateID(userID); err != nil {
		return nil, err
	}

	if balances == nil {
		balances = make(map[rewards.Token]decimal.Decimal)
	}

	return &Wallet{
		userID:   userID,
		balances: balances,
	}, nil
}

func (w *Wallet) UserID() string {
	return w.userID
}

func (w *Wallet) Balance(token rewards.Token) decimal.Decimal {
	return w.balances[token]
}

// Balances returns a copy of all token balances.
func (w *Wallet) Balances() map[rewards.Token]decimal.Decimal {
	out := make(map[rewards.Token]decimal.Decimal, len(w.balances))
	for token, amount := range w.balances {
		out[token] = amount
	}

	return out
}

// Credit applies a signed delta to a token balance, clamping at zero.
// It returns the resulting balance.
func (w *Wallet) Credit(token rewards.Token, amount decimal.Decimal) decimal.Decimal {
	result := w.balances[token].Add(amount)
	if result.IsNegative() {
		result = decimal.Zero
	}

	w.balances[token] = result

	return result
}

// Clamp returns balance+amount floored at zero without mutating anything.
func Clamp(balance, amount decimal.Decimal) decimal.Decimal {
	result := balance.Add(amount)
	if result.IsNegative() {
		return decimal.Zero
	}

	return result
}
