/*
This file contains common utility functions for converting between decimal amounts and
their textual forms, used by the pricing calculator, the HTTP service and the CLI.
*/

package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountEmpty      = errors.New("amount is empty")
	ErrConversionFailed = errors.New("conversion failed")
)

// ParseAmount parses a plain decimal string such as "1200" or "99.5".
func ParseAmount(s string) (sdkmath.LegacyDec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sdkmath.LegacyDec{}, ErrAmountEmpty
	}
	d, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %q is not a decimal: %w", ErrConversionFailed, s, err)
	}
	return d, nil
}

var half = sdkmath.LegacyNewDecWithPrec(5, 1)

// FormatFixed renders d with exactly precision fractional digits, rounding half away from zero.
func FormatFixed(d sdkmath.LegacyDec, precision int) (string, error) {
	if precision < 0 || precision > 18 {
		return "", fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	if d.IsNil() {
		return "", ErrAmountNil
	}

	factor := int64(1)
	for i := 0; i < precision; i++ {
		factor *= 10
	}

	// Exact halves round away from zero
	scaled := d.Abs().MulInt64(factor).Add(half).TruncateInt()
	sign := ""
	if d.IsNegative() && !scaled.IsZero() {
		sign = "-"
	}

	whole := scaled.QuoRaw(factor)
	if precision == 0 {
		return sign + whole.String(), nil
	}
	frac := scaled.ModRaw(factor)
	return fmt.Sprintf("%s%s.%0*d", sign, whole.String(), precision, frac.Int64()), nil
}

// FormatAmount renders a monetary amount with two decimals, the way amounts are shown to
// participants. A nil amount renders as "0.00".
func FormatAmount(d sdkmath.LegacyDec) string {
	s, err := FormatFixed(d, 2)
	if err != nil {
		return "0.00"
	}
	return s
}

// FormatPlain renders d without trailing fractional zeros ("1200", "99.5").
func FormatPlain(d sdkmath.LegacyDec) string {
	if d.IsNil() {
		return "0"
	}
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// JSONNumber converts d into a JSON number literal for wire formats that expect numbers
// rather than the quoted strings LegacyDec marshals to.
func JSONNumber(d sdkmath.LegacyDec) json.Number {
	return json.Number(FormatPlain(d))
}
