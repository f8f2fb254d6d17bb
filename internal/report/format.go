package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// EUR formats an amount as "€1,234.56".
func EUR(f float64) string {
	d := decimal.NewFromFloat(f).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")
	return sign + "€" + groupThousands(whole) + "." + frac
}

// Count formats an integer with thousands separators.
func Count(n int) string {
	if n < 0 {
		return "-" + groupThousands(fmt.Sprint(-n))
	}
	return groupThousands(fmt.Sprint(n))
}

// Pct formats a percentage with one decimal, e.g. "4.5%".
func Pct(f float64) string {
	return fmt.Sprintf("%.1f%%", f)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
