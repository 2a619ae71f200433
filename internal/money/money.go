// Package money centralises monetary arithmetic for the back office.
// All amounts are decimal values rounded to the currency's minor unit.
package money

import "github.com/shopspring/decimal"

// MinorUnits is the number of decimal places carried by every persisted amount.
const MinorUnits = 2

// Zero is the zero amount.
var Zero = decimal.Zero

// Round rounds an amount half-up to the currency's minor unit.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnits)
}

// FloorMinor truncates an amount down to the currency's minor unit.
func FloorMinor(d decimal.Decimal) decimal.Decimal {
	return d.RoundDown(MinorUnits)
}

// MinorUnit returns the smallest representable amount (one cent).
func MinorUnit() decimal.Decimal {
	return decimal.New(1, -MinorUnits)
}

// IsPositive reports whether the amount is strictly greater than zero.
func IsPositive(d decimal.Decimal) bool {
	return d.Sign() > 0
}

// IsNegative reports whether the amount is strictly less than zero.
func IsNegative(d decimal.Decimal) bool {
	return d.Sign() < 0
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
