// README: Common money value object used across modules.
package types

import "math"

// Money is an amount in minor currency units (cents).
type Money struct {
	Amount   int64
	Currency string
}

// FromUnits converts a fractional unit amount to Money, rounding half away
// from zero to the nearest minor unit.
func FromUnits(units float64, currency string) Money {
	return Money{Amount: int64(math.Round(units * 100)), Currency: currency}
}

// Units returns the amount in major currency units.
func (m Money) Units() float64 {
	return float64(m.Amount) / 100
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}
