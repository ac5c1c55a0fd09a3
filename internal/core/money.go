// Package core provides the expense domain types and money handling.
//
// This file contains functions for parsing monetary amounts from form input
// and formatting cents for display.
package core

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol is used by FormatCurrency.
const DefaultCurrencySymbol = "$"

// maxCents keeps amounts far away from int64 overflow when summing a ledger.
const maxCents = int64(1) << 50

// ParseDecimalToCents converts a decimal string to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// on the third decimal place. The result is always positive cents.
// Returns ErrInvalidAmount for invalid formats, signs, exponents, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("12.344") -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	// decimal accepts signs and exponents; form amounts are plain positive numbers.
	if strings.ContainsAny(s, "+-eE") || strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if !cents.IsPositive() || cents.GreaterThanOrEqual(decimal.NewFromInt(maxCents)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// ParseMoney is ParseDecimalToCents wrapped in Money.
func ParseMoney(s string) (Money, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// FormatCurrency formats cents as "$1,234.56" using the given symbol.
// An empty symbol falls back to DefaultCurrencySymbol.
func FormatCurrency(cents int64, symbol string) string {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	neg := cents < 0
	if neg {
		cents = -cents
	}
	rem := cents % 100
	s := symbol + humanize.Comma(cents/100) + "." + twoDigits(rem)
	if neg {
		return "-" + s
	}
	return s
}

// Decimal renders cents as a plain decimal string, e.g. for form values.
func (m Money) Decimal() string {
	if m.Cents == 0 {
		return ""
	}
	return decimal.New(m.Cents, -2).StringFixed(2)
}

// String implements fmt.Stringer
func (m Money) String() string {
	return FormatCurrency(m.Cents, DefaultCurrencySymbol)
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
