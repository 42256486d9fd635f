package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value kept at cent precision.
type Money = decimal.Decimal

// Scale is the number of fractional digits a Money value carries at rest.
const Scale int32 = 2

// Input bounds. A short literal such as "1e999999999" expands to that many
// digits once rescaled, so out-of-range input is rejected before any arithmetic.
const (
	maxLiteral  = 32
	maxExponent = 12
	minExponent = -20
)

// MaxAmount is the largest value Parse accepts.
var MaxAmount = decimal.New(1, maxExponent)

var hundred = decimal.NewFromInt(100)

func init() {
	// API payloads carry amounts as JSON numbers rather than quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Round2 rounds half-up to two decimal places. Inputs are expected to be
// non-negative; for negative values the rounding is half away from zero.
func Round2(v decimal.Decimal) Money {
	return v.Round(Scale)
}

// Parse converts form input into a Money value. It reports false for empty,
// unparseable, negative or out-of-range input.
func Parse(value string) (Money, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || len(trimmed) > maxLiteral {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, false
	}
	// The exponent check must come first: comparing with MaxAmount rescales d.
	if exp := d.Exponent(); exp > maxExponent || exp < minExponent {
		return decimal.Zero, false
	}
	if d.IsNegative() || d.GreaterThan(MaxAmount) {
		return decimal.Zero, false
	}
	return d, true
}

// Rate parses a percentage. Empty, invalid, negative or out-of-range input
// yields zero.
func Rate(value string) decimal.Decimal {
	d, ok := Parse(value)
	if !ok {
		return decimal.Zero
	}
	return d
}

// ClampRate maps negative percentages to zero.
func ClampRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsNegative() {
		return decimal.Zero
	}
	return rate
}

// Percent returns amount * rate / 100 without rounding.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

// Multiplier returns 1 + rate/100.
func Multiplier(rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(rate.Div(hundred))
}

// Format renders an amount with a currency symbol and two fixed decimals.
func Format(symbol string, m Money) string {
	return symbol + Round2(m).StringFixed(Scale)
}
