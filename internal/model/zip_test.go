package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeZIP(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"62701":      "62701",
		" 62701 ":    "62701",
		"62701.0":    "62701",
		"2134":       "02134",
		"2134.00":    "02134",
		"62701-1234": "62701-1234",
		"62701.5":    "62701.5",
		"":           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeZIP(in), "input %q", in)
	}
}
