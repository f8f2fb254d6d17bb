// Package core provides the domain types of the dashboard together with
// the value coercion rules shared by every export.
//
// This file contains the locale-decimal parsing used for monetary columns.
// CardMarket exports write amounts with a decimal comma ("12,34"); the
// dashboard works with dot-decimal float64 values.
package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidNumber = errors.New("invalid number")
	ErrEmptyValue    = errors.New("empty value")
)

// CellError reports a value that failed coercion. Row is zero-based and
// relative to the first data row.
type CellError struct {
	Row   int
	Value string
	Err   error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("row %d: %q: %v", e.Row+1, e.Value, e.Err)
}

func (e *CellError) Unwrap() error {
	return e.Err
}

// ParseLocaleDecimal replaces every comma with a dot and parses the result.
//
// Examples:
//
//	ParseLocaleDecimal("12,34") -> 12.34, nil
//	ParseLocaleDecimal("12.34") -> 12.34, nil
//	ParseLocaleDecimal("-0,5")  -> -0.5, nil
func ParseLocaleDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyValue
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidNumber
	}
	return f, nil
}

// ParsePlainNumber parses a value that the source already stores as a
// number. It never rewrites separators.
func ParsePlainNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyValue
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidNumber
	}
	return f, nil
}

// IsPlainNumber reports whether s parses as a float without any rewriting.
func IsPlainNumber(s string) bool {
	_, err := ParsePlainNumber(s)
	return err == nil
}

// CoerceColumn converts the raw cells of one column to float64.
//
// Columns the source already stores as numbers are passed through
// unchanged; text columns go through ParseLocaleDecimal. Keeping the check
// on the raw representation makes a second pass over coerced data a no-op.
func CoerceColumn(values []string, numeric bool) ([]float64, error) {
	parse := ParseLocaleDecimal
	if numeric {
		parse = ParsePlainNumber
	}
	out := make([]float64, len(values))
	for i, v := range values {
		f, err := parse(v)
		if err != nil {
			return nil, &CellError{Row: i, Value: v, Err: err}
		}
		out[i] = f
	}
	return out, nil
}
