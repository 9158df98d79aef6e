// Package progress carries progress, log, prompt and completion events from
// the record worker to whatever presents them.
package progress

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

// Kind identifies an event.
type Kind int

const (
	KindProgress Kind = iota
	KindLog
	KindPrompt
	KindCompletion
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindLog:
		return "log"
	case KindPrompt:
		return "prompt"
	case KindCompletion:
		return "completion"
	default:
		return "unknown"
	}
}

// Decision is the operator's answer to a prompt.
type Decision int

const (
	DecisionAbort Decision = iota
	DecisionRetry
)

func (d Decision) String() string {
	if d == DecisionRetry {
		return "retry"
	}
	return "abort"
}

// Event is one message on the sink.
type Event struct {
	Kind Kind
	Time time.Time

	// Progress: Index records done out of Total.
	Index   int
	Total   int
	Percent float64

	// Log and Prompt.
	Level   zapcore.Level
	Message string
	Fields  map[string]interface{}

	// Prompt only.
	Prompt *Prompt

	// Completion only; nil when the run finished cleanly.
	Err error
}

// Label renders a progress event as "42.00% (21/50)".
func (e Event) Label() string {
	return fmt.Sprintf("%.2f%% (%d/%d)", e.Percent, e.Index, e.Total)
}

// Prompt is a question the worker is blocked on.
type Prompt struct {
	reply chan Decision
}

func newPrompt() *Prompt {
	return &Prompt{reply: make(chan Decision, 1)}
}

// Answer unblocks the asking worker. Only the first answer counts.
func (p *Prompt) Answer(d Decision) {
	select {
	case p.reply <- d:
	default:
	}
}

// Percent returns index/total as a percentage, 0 when total is 0.
func Percent(index, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(index) / float64(total) * 100
}
