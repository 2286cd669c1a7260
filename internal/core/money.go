// Package core provides money parsing and handling utilities.
//
// Amounts are kept in paise (hundredths of a rupee) to avoid floating-point
// drift; rupee floats only appear at the JSON and display boundaries.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// MaxAmountCents bounds a single amount at one lakh crore rupees. Stored
// documents carry rupees as float64, which is exact well past this value.
const MaxAmountCents int64 = 100_000_000_000_000

// maxStoredCents is the largest paise value a float64 represents exactly.
const maxStoredCents = 1 << 53

// ParseDecimalToCents converts a decimal string to paise with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive.
// Returns ErrInvalidAmount for invalid formats, negative values, or zero
// amounts, and ErrAmountTooLarge above MaxAmountCents.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if iv > MaxAmountCents/100 {
		return 0, ErrAmountTooLarge
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	if cents > MaxAmountCents {
		return 0, ErrAmountTooLarge
	}
	return cents, nil
}

// Rupees returns the amount as a float64 for JSON and display.
// Use Cents for arithmetic.
func (m Money) Rupees() float64 {
	return float64(m.Cents) / 100.0
}

// MoneyFromRupees rounds a stored rupee float to the nearest paisa. NaN,
// infinities, negatives and values too large to have been stored exactly
// are rejected.
func MoneyFromRupees(v float64) (Money, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Money{}, ErrInvalidAmount
	}
	cents := math.Round(v * 100)
	if cents > maxStoredCents {
		return Money{}, ErrAmountTooLarge
	}
	return Money{Cents: int64(cents)}, nil
}

// Add returns m + o, saturating instead of wrapping on overflow.
func (m Money) Add(o Money) Money {
	sum := m.Cents + o.Cents
	switch {
	case o.Cents > 0 && sum < m.Cents:
		return Money{Cents: math.MaxInt64}
	case o.Cents < 0 && sum > m.Cents:
		return Money{Cents: math.MinInt64}
	}
	return Money{Cents: sum}
}

// Sub returns m - o, saturating instead of wrapping on overflow.
func (m Money) Sub(o Money) Money {
	diff := m.Cents - o.Cents
	switch {
	case o.Cents < 0 && diff < m.Cents:
		return Money{Cents: math.MaxInt64}
	case o.Cents > 0 && diff > m.Cents:
		return Money{Cents: math.MinInt64}
	}
	return Money{Cents: diff}
}
