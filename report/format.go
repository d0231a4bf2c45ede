package report

import (
	"fmt"
	"strings"
)

// thousands renders an integer with comma separators, 12345 -> "12,345".
func thousands(n int) string {
	s := fmt.Sprintf("%d", n)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}

	var b strings.Builder
	for i, digit := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	if negative {
		return "-" + b.String()
	}
	return b.String()
}

func pct(v float64, digits int) string {
	return fmt.Sprintf("%.*f%%", digits, v)
}

func signedPct(v float64, digits int) string {
	return fmt.Sprintf("%+.*f%%", digits, v)
}
