package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrun-ai/workflowcore/core"
	"github.com/windrun-ai/workflowcore/policy"
)

func seedRetryPolicy() core.RetryPolicy {
	return core.RetryPolicy{
		MaxRetries:        5,
		BackoffMS:         1000,
		BackoffMultiplier: 2.0,
		MaxBackoffMS:      30000,
	}
}

func TestBackoffDelay_Table(t *testing.T) {
	rp := seedRetryPolicy()
	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
		30000 * time.Millisecond, // capped
	}
	for n, w := range want {
		assert.Equal(t, w, backoffDelay(rp, n), "attempt %d", n)
	}
}

func TestIsRetryableError_PolicyViolationNeverRetries(t *testing.T) {
	err := &policy.Violation{ToolRef: "pack/tool@1.0.0", Reason: policy.ErrToolNotAllowed}
	assert.False(t, isRetryableError(err))
}

func TestIsRetryableError_DeadlineExceededRetries(t *testing.T) {
	assert.True(t, isRetryableError(context.DeadlineExceeded))
}

func TestIsRetryableError_GenericGatewayErrorRetries(t *testing.T) {
	assert.True(t, isRetryableError(errors.New("transient failure")))
}

func TestInvokeWithRetry_StopsAtMaxRetriesBound(t *testing.T) {
	rp := seedRetryPolicy()
	rp.BackoffMS = 0 // no sleeping in the test
	calls := 0
	_, attempts, err := invokeWithRetry(context.Background(), rp, func(ctx context.Context, attempt int) (map[string]any, error) {
		calls++
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, rp.MaxRetries, attempts)
	assert.Equal(t, rp.MaxRetries+1, calls)
}

func TestInvokeWithRetry_SucceedsWithoutRetrying(t *testing.T) {
	rp := seedRetryPolicy()
	calls := 0
	out, attempts, err := invokeWithRetry(context.Background(), rp, func(ctx context.Context, attempt int) (map[string]any, error) {
		calls++
		return map[string]any{"ok": true}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, attempts)
	assert.Equal(t, 1, calls)
	assert.Equal(t, true, out["ok"])
}

func TestInvokeWithRetry_PolicyViolationDoesNotRetry(t *testing.T) {
	rp := seedRetryPolicy()
	calls := 0
	_, _, err := invokeWithRetry(context.Background(), rp, func(ctx context.Context, attempt int) (map[string]any, error) {
		calls++
		return nil, &policy.Violation{ToolRef: "pack/tool@1.0.0", Reason: policy.ErrPermissionDenied}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
