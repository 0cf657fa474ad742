// Package core defines the ledger entities, the fixed-point money
// representation and the pure reporting math shared by the storage and
// service layers.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// MaxAmountCents is the upper bound for any single monetary amount,
// 99,999,999.99 expressed in cents. Total savings is additionally bounded
// below at -MaxAmountCents.
const MaxAmountCents int64 = 9_999_999_999

// Money is a fixed-point amount in cents.
type Money struct {
	Cents int64
}

// ParseAmountCents converts a decimal string to non-negative cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// performs half-up rounding on the third decimal place. Negative values,
// malformed input and amounts above MaxAmountCents are rejected with
// ErrInvalidAmount. Zero is a legal amount.
func ParseAmountCents(s string) (int64, error) {
	cents, err := parseCents(s)
	if err != nil {
		return 0, err
	}
	if cents > MaxAmountCents {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseSignedCents converts a decimal string to cents, allowing a leading
// minus sign. Used for the cumulative savings balance, which may go
// negative. Bounds are [-MaxAmountCents, MaxAmountCents].
func ParseSignedCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	cents, err := parseCents(s)
	if err != nil {
		return 0, err
	}
	if cents > MaxAmountCents {
		return 0, ErrInvalidAmount
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}

func parseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
		if fracPart == "" {
			return 0, ErrInvalidAmount
		}
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
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, ErrInvalidAmount
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
	return iv*100 + fracCents, nil
}

// String renders the amount as a plain decimal with two fractional digits,
// e.g. "12345.67" or "-0.50".
func (m Money) String() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// Float returns the amount as a float64 for display purposes only.
// Calculations stay in cents to avoid floating-point drift.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}
