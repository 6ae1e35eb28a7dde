package runner

import (
	"context"
	"errors"
	"math"
	"net"
	"time"

	"github.com/windrun-ai/workflowcore/core"
	"github.com/windrun-ai/workflowcore/policy"
)

// invokeFunc performs one dispatch attempt, returning the outputs produced.
type invokeFunc func(ctx context.Context, attempt int) (map[string]any, error)

// invokeWithRetry runs fn under policy, retrying retryable failures with
// exponential backoff. Attempts are numbered from 0; invokeFunc is called at
// most policy.MaxRetries+1 times.
func invokeWithRetry(ctx context.Context, rp core.RetryPolicy, fn invokeFunc) (map[string]any, int, error) {
	var lastErr error
	maxAttempts := rp.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt, err
		}

		out, err := fn(ctx, attempt)
		if err == nil {
			return out, attempt, nil
		}
		lastErr = err
		if attempt == maxAttempts-1 || !isRetryableError(err) {
			return nil, attempt, lastErr
		}

		wait := backoffDelay(rp, attempt)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, attempt, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, maxAttempts - 1, lastErr
}

// backoffDelay computes delay(n) = min(backoff_ms * multiplier^n, max_backoff_ms).
func backoffDelay(rp core.RetryPolicy, attempt int) time.Duration {
	if rp.BackoffMS <= 0 {
		return 0
	}
	mult := rp.BackoffMultiplier
	if mult <= 0 {
		mult = 1
	}
	delayMS := float64(rp.BackoffMS) * math.Pow(mult, float64(attempt))
	if rp.MaxBackoffMS > 0 && delayMS > float64(rp.MaxBackoffMS) {
		delayMS = float64(rp.MaxBackoffMS)
	}
	return time.Duration(delayMS) * time.Millisecond
}

// isRetryableError reports whether err should trigger another attempt.
// Policy violations (whitelist/permission denials) never retry; context
// deadline exceeded and net.Error timeouts do.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var violation *policy.Violation
	if errors.As(err, &violation) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return true
}
