package runner

import (
	"context"
	"time"

	"github.com/windrun-ai/workflowcore/core"
)

// ToolSource resolves a fully-qualified tool reference to its registry
// entry, satisfied structurally by *registry.Registry without this package
// importing it.
type ToolSource interface {
	Get(ref string) (core.ToolInterface, error)
}

// SubgraphResolver looks up the nested WorkflowSpec backing a composite or
// subgraph node by its declared reference.
type SubgraphResolver interface {
	Resolve(ref string) (*core.WorkflowSpec, bool)
}

// SpanRecorder persists node-execution spans. Left unset, spans are not
// recorded (used by tests that only care about final outputs/status).
type SpanRecorder interface {
	RecordSpan(ctx context.Context, span core.NodeSpan) error
}

// MetricsRecorder receives per-node and per-execution observability
// counters, satisfied structurally by *otelobs.Metrics without this
// package importing it. Left unset, metrics are not recorded.
type MetricsRecorder interface {
	RecordNode(toolRef, status string, duration time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
	RecordRetry(toolRef string)
	SetInflightNodes(n int)
}
