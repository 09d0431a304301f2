// Package decimal provides money and rate formatting helpers on top of
// shopspring/decimal.
package decimal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatEUR renders an amount as a euro string with thousands
// separators, e.g. "€1,234,567.89".
func FormatEUR(d decimal.Decimal) string {
	return "€" + FormatComma(d, 2)
}

// FormatComma renders a decimal with thousands separators and the given
// number of fractional digits.
func FormatComma(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)

	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	b.WriteString(fracPart)
	return b.String()
}

// FormatPercent renders a fraction as a percentage, e.g. 0.0425 with
// one place becomes "4.3%".
func FormatPercent(d decimal.Decimal, places int32) string {
	return d.Mul(decimal.NewFromInt(100)).StringFixed(places) + "%"
}
