package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxStartingCash caps the cash a player can be created with.
var MaxStartingCash = decimal.NewFromInt(1_000_000_000_000)

// ParseAmount converts a float64 amount from a request body to a decimal.
// It rejects NaN, infinities and anything with more than 2 decimal places.
func ParseAmount(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("monetary values must be finite numbers")
	}
	d := decimal.NewFromFloat(f)
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, fmt.Errorf("monetary values must have at most 2 decimal places")
	}
	return d, nil
}

// ParsePrice parses a quote string such as "150.1200". The price must be
// strictly positive.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed price %q: %w", s, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("price must be positive, got %s", d)
	}
	return d, nil
}

// ToFloat converts a decimal to float64 for JSON responses.
func ToFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
