// Package textnorm cleans text scraped from web pages and read from sheets
// before it is compared or written.
package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Clean applies NFKC normalization, turns non-breaking spaces into regular
// spaces, collapses whitespace runs and trims the result.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Lower is Clean followed by lower-casing.
func Lower(s string) string {
	return strings.ToLower(Clean(s))
}
