package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxCents bounds any single amount or balance so cent arithmetic stays
// well inside int64.
const MaxCents int64 = 100_000_000_000_000

var (
	ErrMoneyFormat    = errors.New("amount must be a decimal number")
	ErrMoneyPrecision = errors.New("amount must have at most 2 decimal places")
	ErrMoneyRange     = errors.New("amount is out of range")
)

// Money is a fixed-point amount with exactly two fractional digits.
// It serializes to JSON as a decimal string such as "14.50" and accepts
// either a string or a JSON number on input.
type Money struct {
	amount decimal.Decimal
}

// Cents builds Money from an integer number of cents
func Cents(c int64) Money {
	return Money{amount: decimal.New(c, -2)}
}

// ParseMoney parses a decimal string, rejecting more than two fractional digits
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %v", ErrMoneyFormat, err)
	}
	return fromDecimal(d)
}

func fromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Truncate(2)) {
		return Money{}, ErrMoneyPrecision
	}
	if d.Abs().GreaterThan(decimal.New(MaxCents, -2)) {
		return Money{}, ErrMoneyRange
	}
	return Money{amount: d}, nil
}

// Cents returns the amount as an integer number of cents
func (m Money) Cents() int64 {
	return m.amount.Shift(2).IntPart()
}

// Decimal exposes the underlying value
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

func (m Money) String() string {
	return m.amount.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %v", ErrMoneyFormat, err)
	}
	parsed, err := fromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
