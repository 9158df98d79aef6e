package model

import (
	"strconv"
	"strings"
)

// NormalizeZIP turns a sheet cell into a ZIP string. Numeric cells lose
// their fractional zero ("62701.0") and short numbers regain leading zeros
// ("2134" becomes "02134"). Anything else is returned trimmed.
func NormalizeZIP(v string) string {
	v = strings.TrimSpace(v)
	if whole, frac, ok := strings.Cut(v, "."); ok && isDigits(whole) && strings.Trim(frac, "0") == "" {
		v = whole
	}
	if isDigits(v) && len(v) < 5 {
		n, err := strconv.Atoi(v)
		if err == nil {
			v = strconv.Itoa(100000 + n)[1:]
		}
	}
	return v
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
