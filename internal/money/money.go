// Package money holds currency amounts as integer cents.
//
// Amounts enter the system as decimal numbers and are floored to the cent
// (100.999 → 100.99, -0.001 → -0.01). Everything after that is integer
// arithmetic; conversion back to a decimal number happens only when encoding.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is an amount in the smallest currency unit.
type Cents int64

// MaxCents bounds the magnitude of a single amount (one hundred billion
// units). Sums of many bounded amounts stay far from int64 overflow.
const MaxCents Cents = 100_000_000_000_00

// ErrOutOfRange is returned for amounts whose magnitude exceeds MaxCents.
var ErrOutOfRange = errors.New("money: amount out of range")

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(int64(MaxCents))
)

// FloorDecimal truncates d down to the cent.
func FloorDecimal(d decimal.Decimal) (Cents, error) {
	cents := d.Mul(hundred).Floor()
	if cents.Abs().GreaterThan(maxCents) {
		return 0, ErrOutOfRange
	}
	return Cents(cents.IntPart()), nil
}

// FromFloat floors a float amount to the cent. The float is converted through
// its shortest decimal representation, so 0.29 yields 29 and not 28.
func FromFloat(f float64) (Cents, error) {
	return FloorDecimal(decimal.NewFromFloat(f))
}

// Parse floors a textual amount such as "100.999" or "1,250.50".
func Parse(s string) (Cents, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	clean = strings.TrimPrefix(clean, "S/")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return 0, fmt.Errorf("money: empty amount")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", s, err)
	}
	c, err := FloorDecimal(d)
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return c, nil
}

// Decimal returns the amount as a two-place decimal.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Float64 is for display sinks (spreadsheets) that need a plain number.
func (c Cents) Float64() float64 {
	f, _ := c.Decimal().Float64()
	return f
}

func (c Cents) IsNegative() bool { return c < 0 }

func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string and floors it to the cent.
func (c *Cents) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	var s string
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = raw
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Sum adds amounts.
func Sum(values ...Cents) Cents {
	var total Cents
	for _, v := range values {
		total += v
	}
	return total
}
