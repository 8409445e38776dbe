// Package money provides the integer-cent amount type used by the ledger.
//
// All balance arithmetic happens on Cents. Decimal values only appear at
// the boundary: parsing request amounts and formatting responses.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxCents bounds the magnitude of a single amount so that sums over a
// ledger cannot overflow int64.
const MaxCents Cents = 10_000_000_000_000

var (
	ErrMalformed = errors.New("money: malformed amount")
	ErrTooLarge  = errors.New("money: amount exceeds maximum")
)

// Cents is a signed amount in the smallest currency unit.
type Cents int64

// Parse converts a decimal string such as "10.00" or "3.335" to cents,
// rounding half away from zero.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMalformed
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return FromDecimal(d)
}

// FromDecimal converts a decimal major-unit amount to cents.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	c := d.Shift(2).Round(0)
	if c.Abs().GreaterThan(decimal.NewFromInt(int64(MaxCents))) {
		return 0, fmt.Errorf("%w: %s", ErrTooLarge, d.String())
	}
	return Cents(c.IntPart()), nil
}

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String formats the amount with exactly two fraction digits.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// IsPositive reports whether the amount is greater than zero.
func (c Cents) IsPositive() bool { return c > 0 }

// Abs returns the absolute value.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// MarshalJSON encodes the amount as a decimal string ("10.00").
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON accepts a decimal string or a bare JSON number.
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Sum adds up a set of amounts.
func Sum(amounts ...Cents) Cents {
	var total Cents
	for _, a := range amounts {
		total += a
	}
	return total
}
