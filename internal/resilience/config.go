package resilience

import (
	"time"

	"go.uber.org/zap"
)

// FromRetryConfig converts config values to a Policy. Non-positive attempts
// become 3. A negative interval becomes 5 seconds; zero means no wait.
func FromRetryConfig(maxAttempts, intervalSecs int, logger *zap.Logger) Policy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if intervalSecs < 0 {
		intervalSecs = 5
	}
	return NewPolicy(maxAttempts, time.Duration(intervalSecs)*time.Second, logger)
}
