// Package money provides exact, non-binary fixed-point arithmetic for the
// quantities and prices that flow through the matching engine.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxIntegerDigits and MaxFractionalDigits bound the precision a Price or
// Quantity may carry, per the 12-integer/8-fractional digit budget.
const (
	MaxIntegerDigits    = 12
	MaxFractionalDigits = 8
)

var (
	// ErrInvalidDecimal indicates a string could not be parsed as a decimal.
	ErrInvalidDecimal = errors.New("money: invalid decimal value")
	// ErrNegative indicates a value that must be non-negative was negative.
	ErrNegative = errors.New("money: value must be non-negative")
	// ErrNotPositive indicates a value that must be strictly positive was not.
	ErrNotPositive = errors.New("money: value must be positive")
	// ErrTooPrecise indicates a value exceeds the integer/fractional digit budget.
	ErrTooPrecise = errors.New("money: exceeds digit budget")
)

// Amount wraps decimal.Decimal for exact fixed-point arithmetic. It is
// never a binary float. Price and Quantity are aliases of Amount: both
// need the same arithmetic and wire encoding, and the matching engine
// never mixes the two in a single expression.
type Amount struct {
	d decimal.Decimal
}

// Price is a trading-pair price. Zero value is not meaningful; construct
// via ParseAmount/ParsePositiveAmount.
type Price = Amount

// Quantity is an order or trade quantity. Zero value is not meaningful for
// orders (quantity must be positive) but is a legal running total.
type Quantity = Amount

// Zero is the additive identity.
func Zero() Amount { return Amount{d: decimal.Zero} }

// ParseAmount parses a decimal string, validating it is non-negative and
// within the digit budget.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %s", ErrInvalidDecimal, err)
	}
	if d.IsNegative() {
		return Amount{}, ErrNegative
	}
	if err := checkDigitBudget(d); err != nil {
		return Amount{}, err
	}
	return Amount{d: d}, nil
}

// ParsePositiveAmount parses and additionally requires the value be > 0.
// Used for order quantity and non-MARKET order price.
func ParsePositiveAmount(s string) (Amount, error) {
	a, err := ParseAmount(s)
	if err != nil {
		return Amount{}, err
	}
	if !a.IsPositive() {
		return Amount{}, ErrNotPositive
	}
	return a, nil
}

func checkDigitBudget(d decimal.Decimal) error {
	coeff := d.Coefficient()
	digits := len(coeff.Abs().String())
	exp := int(d.Exponent())
	fractional := 0
	if exp < 0 {
		fractional = -exp
	}
	integer := digits - fractional
	if exp > 0 && !d.IsZero() {
		integer = digits + exp
	}
	if integer < 0 {
		integer = 0
	}
	if fractional > MaxFractionalDigits || integer > MaxIntegerDigits {
		return ErrTooPrecise
	}
	return nil
}

// Add returns a+b.
func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }

// Sub returns a-b.
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }

// Min returns the smaller of a and b.
func (a Amount) Min(b Amount) Amount {
	if a.d.Cmp(b.d) <= 0 {
		return a
	}
	return b
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

// GreaterThan reports whether a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.d.Cmp(b.d) > 0 }

// GreaterThanOrEqual reports whether a >= b.
func (a Amount) GreaterThanOrEqual(b Amount) bool { return a.d.Cmp(b.d) >= 0 }

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a.d.Cmp(b.d) < 0 }

// LessThanOrEqual reports whether a <= b.
func (a Amount) LessThanOrEqual(b Amount) bool { return a.d.Cmp(b.d) <= 0 }

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool { return a.d.IsZero() }

// IsPositive reports whether a > 0.
func (a Amount) IsPositive() bool { return a.d.IsPositive() }

// IsNegative reports whether a < 0.
func (a Amount) IsNegative() bool { return a.d.IsNegative() }

// String returns the canonical decimal string form used on the wire.
func (a Amount) String() string { return a.d.String() }

// MarshalJSON encodes the amount as a JSON string, matching the wire
// contract's decimal-string fields.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.d.String() + `"`), nil
}

// UnmarshalJSON decodes a JSON string into an amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Decimal exposes the underlying decimal.Decimal for comparator use in the
// red-black-tree price index.
func (a Amount) Decimal() decimal.Decimal { return a.d }
