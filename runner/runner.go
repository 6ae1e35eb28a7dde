// Package runner implements the level-synchronous DAG scheduler: it walks a
// compiled WorkflowSpec's dependency graph, dispatching each ready node to
// the Execution Gateway under policy and budget control, with content
// addressed caching and exponential-backoff retry.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/windrun-ai/workflowcore/core"
	"github.com/windrun-ai/workflowcore/gateway"
)

// Runner errors.
var (
	ErrCancelled      = errors.New("runner: execution cancelled")
	ErrBudgetExceeded = errors.New("runner: budget exceeded")
)

// Runner executes a WorkflowSpec to completion against a shared
// ExecutionContext, registry, gateway, and cache.
type Runner struct {
	Tools       ToolSource
	Gateway     *gateway.Gateway
	Cache       Cache
	Subgraphs   SubgraphResolver
	Spans       SpanRecorder
	Metrics     MetricsRecorder
	Parallelism int
}

// New returns a Runner with the given collaborators. parallelism <= 0 uses
// DefaultParallelism.
func New(tools ToolSource, gw *gateway.Gateway, cache Cache, parallelism int) *Runner {
	if parallelism <= 0 {
		parallelism = DefaultParallelism()
	}
	return &Runner{Tools: tools, Gateway: gw, Cache: cache, Parallelism: parallelism}
}

// DefaultParallelism queries the logical core count via gopsutil, falling
// back to runtime.NumCPU if the host query fails.
func DefaultParallelism() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

type nodeResult struct {
	nodeID string
	status core.ExecutionStatus
	err    error
}

// Execute runs spec to completion, returning the per-run ExecutionRecord.
// It blocks until every node has reached a terminal status, ctx is
// cancelled, or the execution's budget is exceeded. A run that ends Failed
// because of a node failure also returns the first node error received.
func (r *Runner) Execute(ctx context.Context, spec *core.WorkflowSpec, execCtx *core.ExecutionContext) (*core.ExecutionRecord, error) {
	startedAt := time.Now()
	record := &core.ExecutionRecord{
		ExecutionID: execCtx.ExecutionID,
		WorkflowID:  spec.ID,
		StartedAt:   startedAt,
		TotalNodes:  len(spec.Nodes),
	}

	inDegree, adj, err := buildDependencyGraph(spec)
	if err != nil {
		return nil, err
	}

	workCh := make(chan string, len(spec.Nodes))
	resultCh := make(chan nodeResult, len(spec.Nodes))

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	var inflight int64
	for i := 0; i < r.Parallelism; i++ {
		wg.Add(1)
		go r.worker(workerCtx, spec, execCtx, workCh, resultCh, &wg, &inflight)
	}

	loopBody := loopBodyNodeIDs(spec)

	pending := 0
	enqueue := func(nodeID string) {
		pending++
		workCh <- nodeID
	}
	for _, n := range spec.Nodes {
		if loopBody[n.ID] {
			// Dispatched directly by its owning loop node, not the scheduler.
			continue
		}
		if inDegree[n.ID] == 0 {
			enqueue(n.ID)
		}
	}

	var runErr, nodeErr error
	cancelled := false
	budgetExceeded := false

loop:
	for pending > 0 {
		select {
		case <-ctx.Done():
			cancelled = true
			runErr = fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
			break loop
		case res := <-resultCh:
			pending--
			execCtx.SetStatus(res.nodeID, res.status)
			if res.err != nil && nodeErr == nil {
				nodeErr = res.err
			}

			if execCtx.Budget() != nil && execCtx.Budget().Exceeded() {
				budgetExceeded = true
			}

			ready := advance(res.nodeID, spec, adj, inDegree, execCtx)

			if res.status == core.StatusFailed || budgetExceeded {
				// Do not dispatch new work, but let in-flight tasks finish.
				continue
			}
			for _, nextID := range ready {
				enqueue(nextID)
			}
		}
	}

	close(workCh)
	cancelWorkers()
	wg.Wait()
	// Drain any results produced after the loop exited (in-flight tasks that
	// were already dispatched before a failure/cancellation/budget stop).
	for {
		select {
		case res := <-resultCh:
			execCtx.SetStatus(res.nodeID, res.status)
		default:
			goto drained
		}
	}
drained:

	if cancelled {
		markRemainingCancelled(spec, execCtx)
	}

	record.EndedAt = time.Now()
	snapshot := execCtx.Snapshot()
	tallyStatuses(record, spec, snapshot)

	switch {
	case cancelled:
		record.Status = core.StatusCancelled
	case record.FailedNodes > 0 || budgetExceeded:
		record.Status = core.StatusFailed
		if runErr == nil && budgetExceeded {
			runErr = ErrBudgetExceeded
		}
		if runErr == nil {
			runErr = nodeErr
		}
	default:
		record.Status = core.StatusCompleted
	}

	return record, runErr
}

func (r *Runner) worker(ctx context.Context, spec *core.WorkflowSpec, execCtx *core.ExecutionContext, workCh <-chan string, resultCh chan<- nodeResult, wg *sync.WaitGroup, inflight *int64) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case nodeID, ok := <-workCh:
			if !ok {
				return
			}
			node, found := spec.NodeByID(nodeID)
			if !found {
				resultCh <- nodeResult{nodeID: nodeID, status: core.StatusFailed, err: fmt.Errorf("runner: node %s not found", nodeID)}
				continue
			}
			n := atomic.AddInt64(inflight, 1)
			if r.Metrics != nil {
				r.Metrics.SetInflightNodes(int(n))
			}
			status, err := r.executeNode(ctx, spec, node, execCtx)
			n = atomic.AddInt64(inflight, -1)
			if r.Metrics != nil {
				r.Metrics.SetInflightNodes(int(n))
			}
			resultCh <- nodeResult{nodeID: nodeID, status: status, err: err}
		}
	}
}

// loopBodyNodeIDs collects every node id named by a loop node's LoopBody,
// across the whole spec. These ids are owned by executeLoop, which dispatches
// them directly and in order; they must not also enter the scheduler's
// ready-frontier at in-degree 0, or they would run a second time.
func loopBodyNodeIDs(spec *core.WorkflowSpec) map[string]bool {
	ids := make(map[string]bool)
	for _, n := range spec.Nodes {
		if n.Kind != core.NodeKindLoop {
			continue
		}
		for _, bodyID := range n.LoopBody {
			ids[bodyID] = true
		}
	}
	return ids
}

// buildDependencyGraph computes in-degree counts and a forward adjacency
// list over every edge, generalizing the topological-sort machinery
// in core.WorkflowSpec.TopologicalOrder to counters consumed incrementally
// as nodes complete rather than all at once.
func buildDependencyGraph(spec *core.WorkflowSpec) (map[string]int, map[string][]string, error) {
	if _, err := spec.TopologicalOrder(); err != nil {
		return nil, nil, err
	}
	inDegree := make(map[string]int, len(spec.Nodes))
	adj := make(map[string][]string, len(spec.Nodes))
	for _, n := range spec.Nodes {
		inDegree[n.ID] = 0
	}
	seen := make(map[string]map[string]bool, len(spec.Nodes))
	for _, e := range spec.Edges {
		if seen[e.SourceNode] == nil {
			seen[e.SourceNode] = make(map[string]bool)
		}
		if seen[e.SourceNode][e.TargetNode] {
			continue
		}
		seen[e.SourceNode][e.TargetNode] = true
		inDegree[e.TargetNode]++
		adj[e.SourceNode] = append(adj[e.SourceNode], e.TargetNode)
	}
	return inDegree, adj, nil
}

// advance decrements the in-degree of nodeID's successors, returning those
// that became ready. Successors of a Skipped node are skipped transitively
// rather than entering the ready queue.
func advance(nodeID string, spec *core.WorkflowSpec, adj map[string][]string, inDegree map[string]int, execCtx *core.ExecutionContext) []string {
	var ready []string
	status := execCtx.Status(nodeID)

	for _, succ := range adj[nodeID] {
		inDegree[succ]--
		if inDegree[succ] > 0 {
			continue
		}
		if status == core.StatusSkipped || execCtx.Status(succ) == core.StatusSkipped {
			execCtx.SetStatus(succ, core.StatusSkipped)
			ready = append(ready, advance(succ, spec, adj, inDegree, execCtx)...)
			continue
		}
		ready = append(ready, succ)
	}
	return ready
}

func markRemainingCancelled(spec *core.WorkflowSpec, execCtx *core.ExecutionContext) {
	for _, n := range spec.Nodes {
		if !execCtx.Status(n.ID).Terminal() {
			execCtx.SetStatus(n.ID, core.StatusCancelled)
		}
	}
}

func tallyStatuses(record *core.ExecutionRecord, spec *core.WorkflowSpec, snapshot map[string]core.ExecutionStatus) {
	for _, n := range spec.Nodes {
		switch snapshot[n.ID] {
		case core.StatusCompleted:
			record.CompletedNodes++
		case core.StatusCacheHit:
			record.CacheHitNodes++
		case core.StatusFailed:
			record.FailedNodes++
		case core.StatusSkipped:
			record.SkippedNodes++
		case core.StatusCancelled:
			record.CancelledNodes++
		default:
			// Never dispatched (e.g. starved by an earlier failure): counts
			// as cancelled so the record's counters stay balanced.
			record.CancelledNodes++
		}
	}
}
