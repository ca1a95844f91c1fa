// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and formatting them for display.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied amount to a decimal.
//
// Commas are treated as thousands separators and dropped, so "1,250.50"
// parses as 1250.50. Signs are allowed; refunds can be recorded as negative
// amounts. Returns ErrInvalidAmount for anything that is not a number or
// does not fit the REAL column.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("1,200")    -> 1200, nil
//	ParseAmount("abc")      -> 0, ErrInvalidAmount
//	ParseAmount("1e400")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	return ParsePlainAmount(strings.ReplaceAll(s, ",", ""))
}

// ParsePlainAmount is ParseAmount without thousands separators: "1,200"
// is rejected. CSV import uses it.
func ParsePlainAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	// Amounts are stored as float64; an overflow would be read back as Inf.
	if math.IsInf(d.InexactFloat64(), 0) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with two decimals and thousands separators.
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}
