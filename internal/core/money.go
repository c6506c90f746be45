// Package core provides money parsing and handling utilities.
//
// Amounts are carried as integer cents everywhere; decimal strings only appear
// at the edges (CLI flags, seed files, emails).
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var maxCents = decimal.New(1<<62, -2)

// ParseDecimalToCents converts a positive decimal string to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Negative, zero, signed or malformed
// inputs return ErrInvalidAmount.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() || d.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	return d.Shift(2).IntPart(), nil
}

// FormatCents renders cents as a fixed two-decimal string, e.g. 264075 -> "2640.75".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// RoundCents rounds a decimal amount of cents to the nearest whole cent.
// Halves round away from zero.
func RoundCents(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// AbsCents returns the magnitude of a signed cents amount.
func AbsCents(cents int64) int64 {
	if cents < 0 {
		return -cents
	}
	return cents
}
