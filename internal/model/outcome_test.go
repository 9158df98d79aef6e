package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcome_HasEmails(t *testing.T) {
	t.Parallel()

	assert.True(t, Matched([]string{"a@gmail.com"}).HasEmails())
	assert.False(t, Matched(nil).HasEmails())
	assert.False(t, NoMatch().HasEmails())
	assert.False(t, Failed(errors.New("boom")).HasEmails())
}

func TestOutcomeKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "matched", OutcomeMatched.String())
	assert.Equal(t, "no_match", OutcomeNoMatch.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "unknown", OutcomeKind(42).String())
}
