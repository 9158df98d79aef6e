// Package match scores free-text address similarity and decides whether a
// listed address belongs to the input record.
package match

import (
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"
)

// DefaultThreshold is the minimum partial ratio accepted as a match.
const DefaultThreshold = 90

// PartialRatio returns the best similarity in [0,100] between the shorter
// string and any equally long window of the longer one. Windows are anchored
// at the matching blocks of the two strings. The comparison is case and
// token-order sensitive.
func PartialRatio(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}
	if s1 == "" || s2 == "" {
		return 0
	}

	shorter, longer := runes(s1), runes(s2)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	best := 0.0
	for _, b := range difflib.NewMatcher(shorter, longer).GetMatchingBlocks() {
		start := b.B - b.A
		if start < 0 {
			start = 0
		}
		end := start + len(shorter)
		if end > len(longer) {
			end = len(longer)
		}

		r := difflib.NewMatcher(shorter, longer[start:end]).Ratio()
		if r > .995 {
			return 100
		}
		if r > best {
			best = r
		}
	}
	return int(math.RoundToEven(100 * best))
}

// Ratio returns the plain similarity of two strings in [0,100].
func Ratio(s1, s2 string) int {
	r := difflib.NewMatcher(runes(s1), runes(s2)).Ratio()
	return int(math.RoundToEven(100 * r))
}

// runes splits s into one element per rune for the sequence matcher.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Matcher compares a listed address against the address synthesized for an
// input record.
type Matcher struct {
	threshold int
	log       *zap.Logger
}

// New creates a Matcher. A non-positive threshold uses DefaultThreshold.
func New(threshold int, logger *zap.Logger) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{threshold: threshold, log: logger}
}

// Threshold returns the configured match threshold.
func (m *Matcher) Threshold() int {
	return m.threshold
}

// Match lower-cases both addresses, scores them with PartialRatio and
// reports whether the score reaches the threshold.
func (m *Matcher) Match(listed, source string) (int, bool) {
	score := PartialRatio(strings.ToLower(listed), strings.ToLower(source))
	ok := score >= m.threshold
	m.log.Info("compared addresses",
		zap.String("listed", listed),
		zap.String("source", source),
		zap.Int("score", score),
		zap.Bool("matched", ok),
	)
	return score, ok
}
