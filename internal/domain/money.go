// Package domain holds the shared value types that flow through every
// other package: cents, probabilities, cities, sides, statuses, and the
// bracket-label grammar. Nothing here touches I/O.
package domain

import "fmt"

// Cents is an exact integer count of US cents. All monetary values in the
// system are Cents; floats are only used for probabilities and EV dollars.
type Cents int64

// Probability is a float confined to [0, 1].
type Probability float64

// Valid reports whether p lies in the closed unit interval.
func (p Probability) Valid() bool {
	return p >= 0 && p <= 1 && !isNaN(float64(p))
}

func isNaN(f float64) bool {
	return f != f
}

// ValidatePriceCents checks the exchange's YES-price convention: an
// integer in [1, 99] cents.
func ValidatePriceCents(c Cents) error {
	if c < 1 || c > 99 {
		return NewInputError(fmt.Sprintf("price_cents must be 1-99, got %d", c), nil)
	}
	return nil
}

// ValidateProbability checks p lies in [0, 1] and is not NaN.
func ValidateProbability(p Probability) error {
	if !p.Valid() {
		return NewInputError(fmt.Sprintf("probability must be 0.0-1.0, got %v", float64(p)), nil)
	}
	return nil
}
