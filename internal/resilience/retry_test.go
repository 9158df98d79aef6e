package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testPolicy(t *testing.T, attempts int) (Policy, *observer.ObservedLogs, *[]time.Duration) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	var slept []time.Duration
	p := NewPolicy(attempts, 5*time.Second, zap.New(core)).WithSleep(func(d time.Duration) {
		slept = append(slept, d)
	})
	return p, logs, &slept
}

func TestDoVal_SuccessFirstAttempt(t *testing.T) {
	p, logs, slept := testPolicy(t, 3)

	var calls int
	got, err := DoVal(context.Background(), p, "lookup", func(_ context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestDoVal_FailsTwiceThenSucceeds(t *testing.T) {
	p, logs, slept := testPolicy(t, 3)

	var calls int
	got, err := DoVal(context.Background(), p, "lookup", func(_ context.Context) ([]string, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("panel not visible")
		}
		return []string{"SPRINGFIELD IL"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"SPRINGFIELD IL"}, got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, *slept)
}

func TestDoVal_Exhausted(t *testing.T) {
	p, logs, slept := testPolicy(t, 3)
	cause := errors.New("status 503")

	var calls int
	_, err := DoVal(context.Background(), p, "search", func(_ context.Context) (int, error) {
		calls++
		return 0, cause
	})

	require.Error(t, err)
	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, "search", ex.Op)
	assert.Equal(t, 3, ex.Attempts)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, calls)
	assert.Len(t, *slept, 2, "no sleep after the final attempt")
	assert.Equal(t, 3, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("operation reached max attempts").Len())
}

func TestDo_SingleAttempt(t *testing.T) {
	p, _, slept := testPolicy(t, 1)

	err := Do(context.Background(), p, "save", func(_ context.Context) error {
		return errors.New("locked")
	})

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 1, ex.Attempts)
	assert.Empty(t, *slept)
}

func TestDoVal_CancelledBeforeFirstAttempt(t *testing.T) {
	p, _, _ := testPolicy(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	_, err := DoVal(ctx, p, "lookup", func(_ context.Context) (int, error) {
		calls++
		return 1, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDoVal_CancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p, _, _ := testPolicy(t, 3)
	p = p.WithSleep(func(time.Duration) { cancel() })

	var calls int
	_, err := DoVal(ctx, p, "lookup", func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("fail")
	})

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, ex.Attempts)
}

func TestFromRetryConfig(t *testing.T) {
	p := FromRetryConfig(0, 5, nil)
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 5*time.Second, p.Interval)

	p = FromRetryConfig(4, 0, zap.NewNop())
	assert.Equal(t, 4, p.MaxAttempts)
	assert.Zero(t, p.Interval)

	p = FromRetryConfig(-1, -2, nil)
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 5*time.Second, p.Interval)
}

func TestExhaustedError_Message(t *testing.T) {
	err := &ExhaustedError{Op: "usps: resolve 62701", Attempts: 3, Err: errors.New("timeout")}
	assert.Equal(t, "usps: resolve 62701: gave up after 3 attempts: timeout", err.Error())
}
