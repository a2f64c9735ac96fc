// Package core provides money parsing and handling utilities.
//
// Spreadsheet cells arrive as text ("12.5", "12,50", "R$ 1.234,56") or as
// the raw float Excel stores. Amounts are kept in integer cents so sums stay
// exact; means are computed from the exact sum.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const maxCents = 1 << 62

// ParseDecimalToCents converts a decimal string to cents with half-up rounding.
//
// It accepts dot (12.34) and comma (12,34) decimal separators, an optional
// "R$" prefix and thousand separators when both separators are present
// ("1.234,56" or "1,234.56"). Negative values are allowed since refunds
// show up as negative orders. Returns ErrInvalidAmount for anything else.
//
// Examples:
//
//	ParseDecimalToCents("12.34")    -> 1234, nil
//	ParseDecimalToCents("12,34")    -> 1234, nil
//	ParseDecimalToCents("12.345")   -> 1235, nil (rounds up)
//	ParseDecimalToCents("1.234,56") -> 123456, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = normalizeSeparators(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThan(decimal.NewFromInt(maxCents)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// ParseBRLToCents reads amounts typed in the pt-BR locale, where a dot only
// groups thousands. "1.234" and "12.345.678" are whole reais; every other
// form is handled by ParseDecimalToCents. Use it for hand-edited text
// exports, not for raw spreadsheet numbers.
//
//	ParseBRLToCents("1.234")    -> 123400, nil
//	ParseBRLToCents("R$ 1.234") -> 123400, nil
//	ParseBRLToCents("12.5")     -> 1250, nil
func ParseBRLToCents(s string) (int64, error) {
	t := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if dotGrouped(strings.TrimPrefix(t, "-")) {
		t = strings.ReplaceAll(t, ".", "")
	}
	return ParseDecimalToCents(t)
}

// dotGrouped reports whether s is digits in dot-separated groups of three
// after a leading group of one to three, e.g. "1.234" or "12.345.678".
func dotGrouped(s string) bool {
	groups := strings.Split(s, ".")
	if len(groups) < 2 {
		return false
	}
	for i, g := range groups {
		if g == "" || len(g) > 3 || (i > 0 && len(g) != 3) {
			return false
		}
		for _, r := range g {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// normalizeSeparators rewrites s so that "." is the only decimal separator.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		// 1,234.56
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		return strings.Replace(s, ",", ".", 1)
	}
	return s
}

// Reais returns the value in currency units for display and charting.
// Use cents for calculations.
func (m Money) Reais() float64 {
	return decimal.New(m.Cents, -2).InexactFloat64()
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// MeanOf divides total by count in currency units. count must be > 0.
func MeanOf(total Money, count int) float64 {
	return decimal.New(total.Cents, -2).
		Div(decimal.NewFromInt(int64(count))).
		InexactFloat64()
}
