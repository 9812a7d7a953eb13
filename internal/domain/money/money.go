package money

import (
	"bytes"

	"github.com/shopspring/decimal"
)

// Amount counts minor currency units (cents). The remote API sends plain
// major-unit numbers, so JSON is converted at the boundary.
type Amount int64

const scale = 2

func FromMajor(major int64) Amount {
	return Amount(major * 100)
}

// Parse converts a major-unit string ("149.99") to minor units.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return Amount(d.Shift(scale).Round(0).IntPart()), nil
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -scale)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(scale)
}

// ClampedSub returns a-b, never below zero.
func ClampedSub(a, b Amount) Amount {
	if b >= a {
		return 0
	}
	return a - b
}

func Max(a, b Amount) Amount {
	if a > b {
		return a
	}
	return b
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal().String()), nil
}

// UnmarshalJSON accepts numbers and numeric strings. Null, empty and
// malformed values decode to zero: prices feed render paths and must not fail.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	v, err := Parse(string(b))
	if err != nil || v < 0 {
		*a = 0
		return nil
	}
	*a = v
	return nil
}
