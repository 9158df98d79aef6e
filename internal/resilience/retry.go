// Package resilience provides the retry executor used around every external
// lookup (ZIP resolution, proxied search, detail page fetch).
package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Policy is a fixed-interval retry policy: no jitter, no backoff growth.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int
	// Interval is slept between attempts, never after the last one.
	Interval time.Duration
	// Logger receives one error entry per failed attempt.
	Logger *zap.Logger

	sleep func(time.Duration)
}

// NewPolicy builds a policy. Non-positive attempts fall back to one attempt.
func NewPolicy(maxAttempts int, interval time.Duration, logger *zap.Logger) Policy {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if interval < 0 {
		interval = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return Policy{MaxAttempts: maxAttempts, Interval: interval, Logger: logger, sleep: time.Sleep}
}

// WithSleep replaces the blocking sleep, for tests.
func (p Policy) WithSleep(fn func(time.Duration)) Policy {
	p.sleep = fn
	return p
}

// WithLogger returns a copy of the policy logging to l.
func (p Policy) WithLogger(l *zap.Logger) Policy {
	p.Logger = l
	return p
}

// ExhaustedError is returned when every attempt failed. Err is the error of
// the final attempt.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do runs fn until it succeeds or the policy is exhausted.
func Do(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal runs fn until it succeeds or the policy is exhausted, returning the
// value of the successful call. Every failure is retried. The sleep between
// attempts blocks for the full interval; ctx is only checked before each
// attempt.
func DoVal[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return zero, eris.Wrapf(err, "%s: cancelled", op)
			}
			return zero, &ExhaustedError{Op: op, Attempts: attempt - 1, Err: lastErr}
		}

		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		log.Error("operation failed",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Error(err),
		)

		if attempt < p.MaxAttempts {
			log.Info("retrying operation",
				zap.String("op", op),
				zap.Duration("interval", p.Interval),
			)
			sleep(p.Interval)
		}
	}

	log.Warn("operation reached max attempts",
		zap.String("op", op),
		zap.Int("max_attempts", p.MaxAttempts),
	)
	return zero, &ExhaustedError{Op: op, Attempts: p.MaxAttempts, Err: lastErr}
}
