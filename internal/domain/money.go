package domain

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents).
type Money int64

const minorUnitExp = -2

// ParseMoney converts a decimal string such as "250.50" into minor units.
// More than two fractional digits is rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("ParseMoney: %w", ErrInvalidAmount)
	}
	return MoneyFromDecimal(d)
}

func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	minor := d.Shift(-minorUnitExp)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("MoneyFromDecimal: more than two decimal places: %w", ErrInvalidAmount)
	}
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("MoneyFromDecimal: out of range: %w", ErrInvalidAmount)
	}
	return Money(minor.IntPart()), nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), minorUnitExp)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	v, err := ParseMoney(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
