package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
)

// Calculator splits a settlement amount into platform fee and freelancer
// payout. It is the single owner of the platform fee rate.
type Calculator struct {
	rate decimal.Decimal
}

type Split struct {
	Amount domain.Money
	Fee    domain.Money
	Payout domain.Money
	Rate   decimal.Decimal
}

func NewCalculator(rate float64) (*Calculator, error) {
	// decimal.NewFromFloat panics on NaN and Inf, so check the float first.
	if !(rate >= 0 && rate < 1) {
		return nil, fmt.Errorf("NewCalculator: %v: %w", rate, domain.ErrInvalidFeeRate)
	}
	return &Calculator{rate: decimal.NewFromFloat(rate)}, nil
}

func (c *Calculator) Rate() decimal.Decimal {
	return c.rate
}

// Split rounds the fee to the nearest minor unit (half to even) and derives the
// payout by subtraction, so Fee+Payout always equals Amount.
func (c *Calculator) Split(amount domain.Money) (Split, error) {
	if amount <= 0 {
		return Split{}, fmt.Errorf("Split: %w", domain.ErrInvalidAmount)
	}

	fee, err := domain.MoneyFromDecimal(amount.Decimal().Mul(c.rate).RoundBank(2))
	if err != nil {
		return Split{}, fmt.Errorf("Split: %w", err)
	}

	return Split{
		Amount: amount,
		Fee:    fee,
		Payout: amount - fee,
		Rate:   c.rate,
	}, nil
}
