// Package amount parses and validates monetary amounts before they enter a
// transaction. Amounts are exact decimals, never floats.
package amount

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for anything that is not a positive number
// with at most two fractional digits.
var ErrInvalidAmount = errors.New("invalid amount: must be a positive number with at most 2 decimal places")

const maxDecimalPlaces = 2

// Parse validates a raw amount string and returns it as an exact decimal.
// Purely local: no side effects, no storage access.
func Parse(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := Validate(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// Validate checks an already-parsed decimal against the same rules as Parse.
func Validate(d decimal.Decimal) error {
	if d.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if d.Exponent() < -maxDecimalPlaces {
		// decimal keeps the exponent as given, so "10.010" is rejected even
		// though it equals 10.01; normalize trailing zeros first.
		if d.Equal(d.Truncate(maxDecimalPlaces)) {
			return nil
		}
		return ErrInvalidAmount
	}
	return nil
}
