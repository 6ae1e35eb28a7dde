package runner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrun-ai/workflowcore/runner"
)

func TestCacheKey_StableAcrossMapOrdering(t *testing.T) {
	a, err := runner.CacheKey("pack/tool@1.0.0", map[string]any{"a": 1, "b": 2}, map[string]any{"x": "y"}, "")
	require.NoError(t, err)
	b, err := runner.CacheKey("pack/tool@1.0.0", map[string]any{"b": 2, "a": 1}, map[string]any{"x": "y"}, "")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCacheKey_DiffersOnToolRef(t *testing.T) {
	a, err := runner.CacheKey("pack/tool@1.0.0", map[string]any{"a": 1}, nil, "")
	require.NoError(t, err)
	b, err := runner.CacheKey("pack/other@1.0.0", map[string]any{"a": 1}, nil, "")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCacheKey_DiffersOnDataVersion(t *testing.T) {
	a, err := runner.CacheKey("pack/tool@1.0.0", map[string]any{"a": 1}, nil, "v1")
	require.NoError(t, err)
	b, err := runner.CacheKey("pack/tool@1.0.0", map[string]any{"a": 1}, nil, "v2")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCacheKey_DiffersOnInputValue(t *testing.T) {
	a, err := runner.CacheKey("pack/tool@1.0.0", map[string]any{"a": 1}, nil, "")
	require.NoError(t, err)
	b, err := runner.CacheKey("pack/tool@1.0.0", map[string]any{"a": 2}, nil, "")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
