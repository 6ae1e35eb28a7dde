// Package trace persists NodeSpan records durably so observability tooling
// and the desktop shell can inspect and export past executions.
package trace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/windrun-ai/workflowcore/core"
)

// Store is the durable record of node-execution spans. Writers are the
// runner and gateway wrappers; readers are observability/UI. Writes must be
// atomic per-span: a span inserted with status Running and later finalized
// either updates in place or is replaced by a terminal record, but
// QuerySpansByExecution must never return two rows for the same span id.
type Store interface {
	InsertSpan(ctx context.Context, span core.NodeSpan) error
	QuerySpansByExecution(ctx context.Context, executionID string) ([]core.NodeSpan, error)
	QuerySpan(ctx context.Context, spanID string) (core.NodeSpan, bool, error)
	Close() error
}

// ExportJSON pretty-prints spans as a JSON array of NodeSpan objects, per
// the trace export format.
func ExportJSON(spans []core.NodeSpan) (string, error) {
	out, err := json.MarshalIndent(spans, "", "  ")
	if err != nil {
		return "", fmt.Errorf("trace: export json: %w", err)
	}
	return string(out), nil
}

// recordSpanRecorder adapts a Store to runner.SpanRecorder without the
// runner package needing to import trace directly.
type recordSpanRecorder struct {
	store Store
}

// NewSpanRecorder wraps a Store so it satisfies runner.SpanRecorder's
// narrow RecordSpan(ctx, span) error interface.
func NewSpanRecorder(store Store) interface {
	RecordSpan(ctx context.Context, span core.NodeSpan) error
} {
	return recordSpanRecorder{store: store}
}

func (r recordSpanRecorder) RecordSpan(ctx context.Context, span core.NodeSpan) error {
	return r.store.InsertSpan(ctx, span)
}
