// Package core holds the ledger domain model and the pure derivation
// engine that turns a household snapshot into balances and projections.
//
// This file contains money parsing and arithmetic helpers. Amounts are
// kept in integer cents everywhere; floats appear only at display
// boundaries.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseSignedCents converts a decimal string to signed cents with half-up
// rounding on the third decimal place. Both dot (12.34) and comma (12,34)
// separators are accepted; a leading '-' marks an outflow and a leading
// '+' is tolerated. Zero is rejected: a ledger movement always moves money.
//
// Examples:
//
//	ParseSignedCents("12.34")  -> 1234, nil
//	ParseSignedCents("-12,34") -> -1234, nil
//	ParseSignedCents("1.005")  -> 101, nil (rounds up)
func ParseSignedCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take the first two fractional digits; half-up rounding on the third
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	// iv == maxSafeInt64 passes the pre-check but can still wrap here
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// Neg returns the value with its sign flipped.
func (m Money) Neg() Money {
	return Money{Cents: -m.Cents}
}

// IsNegative reports whether the value is below zero.
func (m Money) IsNegative() bool {
	return m.Cents < 0
}

// Euros returns the value as a float64 for display purposes only.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}
