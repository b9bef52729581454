package domain

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// Money represents an amount in minor units (e.g. cents).
// It is backed by an arbitrary precision decimal, so arithmetic never wraps.
// A Money value is immutable: every operation returns a new value.
type Money struct {
	amount decimal.Decimal
}

// ZeroMoney is the zero amount
var ZeroMoney = Money{amount: decimal.Zero}

// MoneyOf creates a Money from an integer amount of minor units
func MoneyOf(amount int64) Money {
	return Money{amount: decimal.NewFromInt(amount)}
}

// MaxMoneyDigits matches the precision of the amount column
const MaxMoneyDigits = 38

const maxMoneyLength = 64

// Plain decimal notation only, exponents are not accepted
var moneyPattern = regexp.MustCompile(`^[+-]?[0-9]{1,38}(\.[0-9]*)?$`)

// NewMoneyFromString parses an integer amount of minor units.
// Fractional amounts are rejected, as are amounts with more than MaxMoneyDigits digits.
func NewMoneyFromString(value string) (Money, error) {
	if len(value) > maxMoneyLength || !moneyPattern.MatchString(value) {
		return Money{}, fmt.Errorf("invalid money amount %q: expected a plain integer of at most %d digits", truncate(value), MaxMoneyDigits)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money amount %q: %w", value, err)
	}
	return newMoneyFromDecimal(d)
}

func truncate(value string) string {
	if len(value) > maxMoneyLength {
		return value[:maxMoneyLength] + "..."
	}
	return value
}

// newMoneyFromDecimal wraps a decimal, enforcing the integer scale
func newMoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Truncate(0)) {
		return Money{}, fmt.Errorf("invalid money amount %s: must be a whole number of minor units", d.String())
	}
	return Money{amount: d.Truncate(0)}, nil
}

// Add returns m + other
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Subtract returns m - other
func (m Money) Subtract(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Negate returns -m
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg()}
}

// IsPositive reports whether m > 0
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative reports whether m < 0
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// IsPositiveOrZero reports whether m >= 0
func (m Money) IsPositiveOrZero() bool {
	return !m.amount.IsNegative()
}

// IsGreaterThan reports whether m > other
func (m Money) IsGreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// IsGreaterThanOrEqualTo reports whether m >= other
func (m Money) IsGreaterThanOrEqualTo(other Money) bool {
	return m.amount.GreaterThanOrEqual(other.amount)
}

// Cmp returns -1, 0 or +1 depending on whether m is less than, equal to or greater than other
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

// Equal reports whether both amounts are the same
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// Decimal exposes the underlying decimal (used by persistence adapters)
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Int64 narrows the amount to an int64.
// Returns ErrMoneyOverflow if the amount does not fit.
func (m Money) Int64() (int64, error) {
	if !m.amount.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %s does not fit in int64", ErrMoneyOverflow, m.amount.String())
	}
	return m.amount.IntPart(), nil
}

// MustInt64 is like Int64 but panics on overflow
func (m Money) MustInt64() int64 {
	v, err := m.Int64()
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the amount in minor units, e.g. "1500"
func (m Money) String() string {
	return m.amount.String()
}
