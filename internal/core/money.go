package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmountToCents converts a textual amount into positive cents.
//
// Both decimal separators are accepted; when both appear the rightmost
// one is taken as the decimal mark and the other as a thousands
// separator ("1.234,56" and "1,234.56" both parse to 123456). A leading
// "R$" currency prefix and inner spaces are ignored. Rounding is
// half-up on the third decimal digit. Zero and negative amounts are
// rejected.
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, fieldError(ErrInvalidAmount, "amount", "amount is required")
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, fieldError(ErrInvalidAmount, "amount", "amount must be greater than zero")
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, fieldError(ErrInvalidAmount, "amount", "invalid number")
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, fieldError(ErrInvalidAmount, "amount", "invalid number")
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fieldError(ErrInvalidAmount, "amount", "invalid number")
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, fieldError(ErrInvalidAmount, "amount", "amount too large")
	}

	// First two fractional digits, half-up rounding on the third.
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
		return 0, fieldError(ErrInvalidAmount, "amount", "amount must be greater than zero")
	}
	return cents, nil
}

// DecimalString renders cents as a dotted decimal with two places, the
// form used for CSV export.
func (m Money) DecimalString() string {
	neg := ""
	cents := m.Cents
	if cents < 0 {
		neg = "-"
		cents = -cents
	}
	return neg + strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
