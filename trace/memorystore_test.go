package trace_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrun-ai/workflowcore/core"
	"github.com/windrun-ai/workflowcore/trace"
)

func sampleSpan(spanID, executionID, nodeID string) core.NodeSpan {
	span := core.NodeSpan{
		SpanID:      spanID,
		ExecutionID: executionID,
		NodeID:      nodeID,
		ToolRef:     "demo/tool@1.0.0",
		StartedAt:   time.Now(),
	}
	span.Finalize(core.StatusCompleted, []byte(`{"ok":true}`), "", time.Now())
	return span
}

func TestMemoryStore_InsertAndQueryByExecution(t *testing.T) {
	s := trace.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.InsertSpan(ctx, sampleSpan("s1", "exec-1", "a")))
	require.NoError(t, s.InsertSpan(ctx, sampleSpan("s2", "exec-1", "b")))
	require.NoError(t, s.InsertSpan(ctx, sampleSpan("s3", "exec-2", "a")))

	got, err := s.QuerySpansByExecution(ctx, "exec-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMemoryStore_QuerySpanMissingReturnsFalse(t *testing.T) {
	s := trace.NewMemoryStore()
	_, ok, err := s.QuerySpan(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_InsertSameSpanIDUpdatesInPlace(t *testing.T) {
	s := trace.NewMemoryStore()
	ctx := context.Background()
	running := core.NodeSpan{SpanID: "s1", ExecutionID: "exec-1", NodeID: "a", Status: core.StatusRunning, StartedAt: time.Now()}
	require.NoError(t, s.InsertSpan(ctx, running))

	done := sampleSpan("s1", "exec-1", "a")
	require.NoError(t, s.InsertSpan(ctx, done))

	spans, err := s.QuerySpansByExecution(ctx, "exec-1")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, core.StatusCompleted, spans[0].Status)
}

func TestExportJSON_ProducesPrettyPrintedArray(t *testing.T) {
	spans := []core.NodeSpan{sampleSpan("s1", "exec-1", "a")}
	out, err := trace.ExportJSON(spans)
	require.NoError(t, err)
	assert.Contains(t, out, "\"span_id\": \"s1\"")
	assert.Contains(t, out, "\n")
}

func TestNewSpanRecorder_DelegatesToStore(t *testing.T) {
	s := trace.NewMemoryStore()
	recorder := trace.NewSpanRecorder(s)

	span := sampleSpan("s1", "exec-1", "a")
	require.NoError(t, recorder.RecordSpan(context.Background(), span))

	got, ok, err := s.QuerySpan(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", got.NodeID)
}
