package core

import "time"

// ExecutionStatus is the closed set of terminal and non-terminal node/run
// states. Transitions are exclusive and monotone: Pending -> Running ->
// (Completed | CacheHit | Failed | Cancelled), with Skipped reserved for
// branches not taken by a conditional/loop node.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusSkipped   ExecutionStatus = "skipped"
	StatusCacheHit  ExecutionStatus = "cache_hit"
	StatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether a status represents a node that will not run again.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusSkipped, StatusCacheHit, StatusCancelled:
		return true
	default:
		return false
	}
}

// NodeSpan is one immutable record of a node-execution attempt. Once Finalize
// populates EndedAt it must not be mutated again; the trace store enforces
// this by treating spans as append/replace-whole-row.
type NodeSpan struct {
	SpanID      string          `json:"span_id" yaml:"span_id"`
	ExecutionID string          `json:"execution_id" yaml:"execution_id"`
	NodeID      string          `json:"node_id" yaml:"node_id"`
	ToolRef     string          `json:"tool_ref,omitempty" yaml:"tool_ref,omitempty"`
	Attempt     int             `json:"attempt" yaml:"attempt"`
	Input       []byte          `json:"input,omitempty" yaml:"input,omitempty"`
	Output      []byte          `json:"output,omitempty" yaml:"output,omitempty"`
	Config      []byte          `json:"config,omitempty" yaml:"config,omitempty"`
	StartedAt   time.Time       `json:"started_at" yaml:"started_at"`
	EndedAt     time.Time       `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	DurationMS  int64           `json:"duration_ms" yaml:"duration_ms"`
	Status      ExecutionStatus `json:"status" yaml:"status"`
	Error       string          `json:"error,omitempty" yaml:"error,omitempty"`
	CacheHit    bool            `json:"cache_hit" yaml:"cache_hit"`
	Environment map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// Finalize stamps the terminal fields of a span. Callers insert the span once
// Running, then finalize in place (or append a terminal record -- the trace
// store decides which; either way an exported trace presents one row per
// final outcome).
func (s *NodeSpan) Finalize(status ExecutionStatus, output []byte, errMsg string, endedAt time.Time) {
	s.Status = status
	s.Output = output
	s.Error = errMsg
	s.EndedAt = endedAt
	s.DurationMS = endedAt.Sub(s.StartedAt).Milliseconds()
}

// ExecutionRecord is one per-run summary.
type ExecutionRecord struct {
	ExecutionID string          `json:"execution_id" yaml:"execution_id"`
	WorkflowID  string          `json:"workflow_id" yaml:"workflow_id"`
	StartedAt   time.Time       `json:"started_at" yaml:"started_at"`
	EndedAt     time.Time       `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	Status      ExecutionStatus `json:"status" yaml:"status"`

	TotalNodes     int `json:"total_nodes" yaml:"total_nodes"`
	CompletedNodes int `json:"completed_nodes" yaml:"completed_nodes"`
	FailedNodes    int `json:"failed_nodes" yaml:"failed_nodes"`
	CacheHitNodes  int `json:"cache_hit_nodes" yaml:"cache_hit_nodes"`
	SkippedNodes   int `json:"skipped_nodes" yaml:"skipped_nodes"`
	CancelledNodes int `json:"cancelled_nodes" yaml:"cancelled_nodes"`
}

// CountersBalanced reports the invariant that total_nodes equals the sum of
// every terminal-status counter.
func (r ExecutionRecord) CountersBalanced() bool {
	return r.TotalNodes == r.CompletedNodes+r.FailedNodes+r.CacheHitNodes+r.SkippedNodes+r.CancelledNodes
}
