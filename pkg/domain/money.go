package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Money is an amount in cents. Totals are computed on integers so that the
// running total of an order is always exact.
type Money int64

// FromFloat converts a decimal amount (e.g. 12.5) to Money, rounding to the cent.
func FromFloat(v float64) Money {
	return Money(math.Round(v * 100))
}

// Times multiplies the amount by a quantity.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// Float returns the amount as a decimal number.
func (m Money) Float() float64 {
	return float64(m) / 100
}

// String renders the amount as "$12.50".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%02d", sign, v/100, v%100)
}

// MarshalJSON writes the amount as a decimal number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(m.Float(), 'f', 2, 64)), nil
}

// UnmarshalJSON accepts a decimal number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*m = FromFloat(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("money: expected number, got %s", string(data))
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("money: %w", err)
	}
	*m = FromFloat(f)
	return nil
}
