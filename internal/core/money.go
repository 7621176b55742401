// Package core provides the ledger domain model shared by every layer.
//
// This file contains money parsing and the shared money formatter used by
// all human-facing renderings. Amounts are kept as integer cents; rounding
// happens only at presentation time, never before summation.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in integer cents. Sums and differences stay exact;
// the value may be negative (net balances).
type Money struct {
	Cents int64
}

// ParseAmount converts an operator-entered amount string to Money.
//
// It accepts the grouped input convention of the ledger UI: dots as thousands
// separators and comma as the decimal separator, with an optional leading
// currency sign ("$ 1.250.000" -> 125000000 cents). Returns ErrInvalidAmount
// for anything that does not parse to a positive value.
func ParseAmount(s string) (Money, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' || r == ',' {
			return r
		}
		return -1
	}, s)
	// Dots group thousands, comma marks decimals.
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return Money{}, ErrInvalidAmount
	}

	parts := strings.SplitN(cleaned, ".", 3)
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	units, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxUnits = (1<<63 - 1) / 100
	if units > maxUnits {
		return Money{}, ErrInvalidAmount
	}
	cents := units * 100
	if len(parts) == 2 && parts[1] != "" {
		frac := parts[1]
		d1 := int64(frac[0] - '0')
		cents += d1 * 10
		if len(frac) > 1 {
			cents += int64(frac[1] - '0')
			if len(frac) > 2 && frac[2] >= '5' {
				cents++
			}
		}
	}
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

// MoneyFromFloat converts a unit amount (e.g. a JSON number) to Money,
// rounding half away from zero at the cent.
func MoneyFromFloat(units float64) Money {
	cents := units * 100
	if cents >= 0 {
		return Money{Cents: int64(cents + 0.5)}
	}
	return Money{Cents: int64(cents - 0.5)}
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// Units returns the whole-unit value, rounded half away from zero.
func (m Money) Units() int64 {
	if m.Cents >= 0 {
		return (m.Cents + 50) / 100
	}
	return (m.Cents - 50) / 100
}

// Format renders the amount for human display: "$" followed by the
// integer-rounded value grouped with dot thousands separators and zero
// decimal places ("$100.000", "$-60.000"). This is the single formatter for
// every on-screen or printed amount; exports carry raw values instead.
func (m Money) Format() string {
	return "$" + groupThousands(m.Units())
}

// Decimal renders the exact amount as a plain decimal string with no
// grouping and no trailing zeros ("100000", "1234.5"). Used for the numeric
// spreadsheet cells and the delimited export.
func (m Money) Decimal() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10)
	if rem := cents % 100; rem != 0 {
		frac := strconv.FormatInt(rem, 10)
		if rem < 10 {
			frac = "0" + frac
		}
		frac = strings.TrimRight(frac, "0")
		s += "." + frac
	}
	if neg {
		s = "-" + s
	}
	return s
}

func groupThousands(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 && !(neg && b.Len() == 1) {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
