// Package otelobs provides OpenTelemetry span emission and Prometheus
// metrics for workflowcore's node-execution events.
package otelobs

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/windrun-ai/workflowcore/core"
)

// TracingRecorder translates node spans into OpenTelemetry spans: one
// execution id roots a span, each node id a child beneath it. Satisfies
// runner.SpanRecorder structurally (RecordSpan(ctx, core.NodeSpan) error).
type TracingRecorder struct {
	tracer trace.Tracer

	mu        sync.Mutex
	execSpans map[string]trace.Span
	execCtxs  map[string]context.Context
}

// NewTracingRecorder creates a recorder that starts spans on tracer.
func NewTracingRecorder(tracer trace.Tracer) *TracingRecorder {
	return &TracingRecorder{
		tracer:    tracer,
		execSpans: make(map[string]trace.Span),
		execCtxs:  make(map[string]context.Context),
	}
}

// RecordSpan opens (if needed) the execution's root span, starts and
// immediately ends a child span covering the node span's recorded
// duration, and sets the root span's status to Error the first time any
// node fails.
func (r *TracingRecorder) RecordSpan(ctx context.Context, span core.NodeSpan) error {
	parentCtx := r.rootContext(span.ExecutionID)

	_, nodeSpan := r.tracer.Start(parentCtx, "node:"+span.NodeID,
		trace.WithTimestamp(span.StartedAt),
		trace.WithAttributes(
			attribute.String("workflowcore.execution_id", span.ExecutionID),
			attribute.String("workflowcore.node_id", span.NodeID),
			attribute.String("workflowcore.tool_ref", span.ToolRef),
			attribute.Int("workflowcore.attempt", span.Attempt),
			attribute.Bool("workflowcore.cache_hit", span.CacheHit),
		),
	)
	defer nodeSpan.End(trace.WithTimestamp(span.EndedAt))

	switch span.Status {
	case core.StatusFailed:
		nodeSpan.SetStatus(codes.Error, span.Error)
		r.markExecFailed(span.ExecutionID)
	case core.StatusCancelled:
		nodeSpan.SetStatus(codes.Error, "cancelled")
	default:
		nodeSpan.SetStatus(codes.Ok, "")
	}

	return nil
}

// FinishExecution ends the root span for an execution id, if one was
// opened. Callers invoke this once after Runner.Execute returns.
func (r *TracingRecorder) FinishExecution(executionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if span, ok := r.execSpans[executionID]; ok {
		span.End()
		delete(r.execSpans, executionID)
		delete(r.execCtxs, executionID)
	}
}

func (r *TracingRecorder) rootContext(executionID string) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx, ok := r.execCtxs[executionID]; ok {
		return ctx
	}
	ctx, span := r.tracer.Start(context.Background(), "execution:"+executionID,
		trace.WithAttributes(attribute.String("workflowcore.execution_id", executionID)),
	)
	r.execSpans[executionID] = span
	r.execCtxs[executionID] = ctx
	return ctx
}

func (r *TracingRecorder) markExecFailed(executionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if span, ok := r.execSpans[executionID]; ok {
		span.SetStatus(codes.Error, "node execution failed")
	}
}
