package progress

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// Sink receives events from the worker. Implementations must be safe for
// concurrent use.
type Sink interface {
	Progress(index, total int)
	Log(level zapcore.Level, msg string, fields map[string]interface{})
	// Ask blocks until the operator answers or ctx ends. A cancelled
	// context counts as abort.
	Ask(ctx context.Context, msg string) Decision
	Complete(err error)
}

// ChannelSink delivers events on a channel for a single consumer.
type ChannelSink struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
	now    func() time.Time
}

var _ Sink = (*ChannelSink)(nil)

// NewChannelSink creates a sink with the given channel buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelSink{ch: make(chan Event, buffer), now: time.Now}
}

// Events is the consumer side.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Close ends the stream. Events sent after Close are dropped.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

func (s *ChannelSink) send(ev Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	ev.Time = s.now()
	s.ch <- ev
	return true
}

func (s *ChannelSink) Progress(index, total int) {
	s.send(Event{Kind: KindProgress, Index: index, Total: total, Percent: Percent(index, total)})
}

func (s *ChannelSink) Log(level zapcore.Level, msg string, fields map[string]interface{}) {
	s.send(Event{Kind: KindLog, Level: level, Message: msg, Fields: fields})
}

func (s *ChannelSink) Ask(ctx context.Context, msg string) Decision {
	p := newPrompt()
	if !s.send(Event{Kind: KindPrompt, Level: zapcore.ErrorLevel, Message: msg, Prompt: p}) {
		return DecisionAbort
	}
	select {
	case d := <-p.reply:
		return d
	case <-ctx.Done():
		return DecisionAbort
	}
}

func (s *ChannelSink) Complete(err error) {
	s.send(Event{Kind: KindCompletion, Err: err})
}

// Discard is a Sink that drops everything and answers every prompt with
// abort.
type Discard struct{}

func (Discard) Progress(int, int)                                 {}
func (Discard) Log(zapcore.Level, string, map[string]interface{}) {}
func (Discard) Ask(context.Context, string) Decision              { return DecisionAbort }
func (Discard) Complete(error)                                    {}

// Drain hands every event to fn until the channel closes and returns the
// error carried by the completion event.
func Drain(events <-chan Event, fn func(Event)) error {
	var final error
	for ev := range events {
		if ev.Kind == KindCompletion {
			final = ev.Err
		}
		if fn != nil {
			fn(ev)
		}
	}
	return final
}
