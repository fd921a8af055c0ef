package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money renders an amount with two decimals and thousands separators,
// e.g. 1234.5 -> "1,234.50".
func Money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}

// FormatAmount renders a receipt amount followed by its currency code.
func (r Receipt) FormatAmount() string {
	if r.Currency == "" {
		return Money(r.Amount)
	}
	return Money(r.Amount) + " " + r.Currency
}
