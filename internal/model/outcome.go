package model

// OutcomeKind tells the caller which branch an enrichment attempt took.
type OutcomeKind int

const (
	// OutcomeNoMatch means no listed address verified against the input.
	OutcomeNoMatch OutcomeKind = iota
	// OutcomeMatched means an address verified. Emails may still be empty
	// when the page lists no allow-listed address.
	OutcomeMatched
	// OutcomeFailed means an external lookup failed after all retries.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeMatched:
		return "matched"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one verify-and-extract or enrichment attempt.
type Outcome struct {
	Kind   OutcomeKind
	Emails []string
	Err    error
}

// Matched returns a matched outcome carrying emails.
func Matched(emails []string) Outcome {
	return Outcome{Kind: OutcomeMatched, Emails: emails}
}

// NoMatch returns the not-found outcome.
func NoMatch() Outcome {
	return Outcome{Kind: OutcomeNoMatch}
}

// Failed returns a terminal failure outcome.
func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

// HasEmails reports whether the outcome produced at least one email.
func (o Outcome) HasEmails() bool {
	return o.Kind == OutcomeMatched && len(o.Emails) > 0
}
