package runner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/google/uuid"

	"github.com/windrun-ai/workflowcore/core"
	"github.com/windrun-ai/workflowcore/gateway"
	"github.com/windrun-ai/workflowcore/policy"
)

// tokensUsedKey is the reserved output key a tool's outputs may carry to
// report how many tokens the call spent, the same out-of-band convention
// dispatchConfig's "__"-prefixed keys use for runtime wiring. It is stripped
// from the node's published output before downstream nodes see it.
const tokensUsedKey = "__tokens_used"

// executeNode dispatches by NodeEntry.Kind, matching the polymorphic node
// entry's tagged-variant dispatch rather than an inheritance hierarchy.
func (r *Runner) executeNode(ctx context.Context, spec *core.WorkflowSpec, node core.NodeEntry, execCtx *core.ExecutionContext) (core.ExecutionStatus, error) {
	execCtx.SetStatus(node.ID, core.StatusRunning)

	switch node.Kind {
	case core.NodeKindPrimitive:
		return r.executePrimitive(ctx, spec, node, execCtx)
	case core.NodeKindConditional:
		return r.executeConditional(node, execCtx)
	case core.NodeKindLoop:
		return r.executeLoop(ctx, spec, node, execCtx)
	case core.NodeKindComposite, core.NodeKindSubgraph:
		return r.executeSubgraph(ctx, node, execCtx)
	default:
		return core.StatusFailed, fmt.Errorf("runner: unknown node kind %q for node %s", node.Kind, node.ID)
	}
}

// executePrimitive implements step 3 of the DAG runner's algorithm: resolve
// inputs, compute the cache key, check the cache, enforce policy, dispatch to
// the gateway with retry, and publish the result.
func (r *Runner) executePrimitive(ctx context.Context, spec *core.WorkflowSpec, node core.NodeEntry, execCtx *core.ExecutionContext) (core.ExecutionStatus, error) {
	inputs := resolveInputs(spec, node.ID, execCtx)

	tool, err := r.Tools.Get(node.ToolRef)
	if err != nil {
		r.recordSpan(ctx, execCtx, node, 0, core.StatusFailed, inputs, node.Config, nil, err, time.Now())
		return core.StatusFailed, fmt.Errorf("runner: resolving tool %s for node %s: %w", node.ToolRef, node.ID, err)
	}
	config := dispatchConfig(node.Config, tool.Runtime)

	key, err := CacheKey(node.ToolRef, inputs, node.Config, "")
	if err != nil {
		return core.StatusFailed, fmt.Errorf("runner: computing cache key for node %s: %w", node.ID, err)
	}

	if r.Cache != nil {
		if out, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			execCtx.SetOutput(node.ID, out)
			r.recordSpan(ctx, execCtx, node, 0, core.StatusCacheHit, inputs, config, out, nil, time.Now())
			r.recordCacheOutcome(true)
			return core.StatusCacheHit, nil
		}
	}

	var unlock func()
	if r.Cache != nil {
		unlock, err = r.Cache.Lock(ctx, key)
		if err != nil {
			return core.StatusFailed, err
		}
		defer unlock()

		// Re-check: another builder may have completed while we waited.
		if out, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			execCtx.SetOutput(node.ID, out)
			r.recordSpan(ctx, execCtx, node, 0, core.StatusCacheHit, inputs, config, out, nil, time.Now())
			r.recordCacheOutcome(true)
			return core.StatusCacheHit, nil
		}
	}
	r.recordCacheOutcome(false)

	if err := policy.Check(execCtx.Policy, tool); err != nil {
		r.recordSpan(ctx, execCtx, node, 0, core.StatusFailed, inputs, config, nil, err, time.Now())
		return core.StatusFailed, err
	}

	if execCtx.Budget() != nil && !execCtx.Budget().CheckRunTime() {
		return core.StatusFailed, ErrBudgetExceeded
	}

	retryPolicy := core.DefaultRetryPolicy()
	if node.RetryPolicy != nil {
		retryPolicy = *node.RetryPolicy
	}

	startedAt := time.Now()
	out, attempts, dispatchErr := invokeWithRetry(ctx, retryPolicy, func(ctx context.Context, attempt int) (map[string]any, error) {
		attemptStart := time.Now()
		res, err := r.Gateway.Dispatch(ctx, node.ToolRef, tool.Runtime, gateway.ToolInput{
			ToolRef: node.ToolRef,
			Inputs:  inputs,
			Config:  config,
		})
		if execCtx.Budget() != nil && !execCtx.Budget().CheckNodeTime(time.Since(attemptStart)) {
			return nil, fmt.Errorf("%w: node %s exceeded per-node time budget", ErrBudgetExceeded, node.ID)
		}
		if err != nil {
			return nil, err
		}
		return res.Outputs, nil
	})

	if attempts > 0 && r.Metrics != nil {
		for i := 0; i < attempts; i++ {
			r.Metrics.RecordRetry(node.ToolRef)
		}
	}

	if dispatchErr != nil {
		r.recordSpan(ctx, execCtx, node, attempts, core.StatusFailed, inputs, config, nil, dispatchErr, startedAt)
		if r.Metrics != nil {
			r.Metrics.RecordNode(node.ToolRef, string(core.StatusFailed), time.Since(startedAt))
		}
		return core.StatusFailed, dispatchErr
	}

	tokens := extractTokensUsed(out)
	if execCtx.Budget() != nil {
		withinTokens := execCtx.Budget().RecordTokens(tokens)
		withinCost := execCtx.Budget().RecordCost(tool.CostHint)
		if !withinTokens || !withinCost {
			r.recordSpan(ctx, execCtx, node, attempts, core.StatusFailed, inputs, config, out, ErrBudgetExceeded, startedAt)
			return core.StatusFailed, fmt.Errorf("%w: node %s exceeded token or cost budget", ErrBudgetExceeded, node.ID)
		}
	}

	execCtx.SetOutput(node.ID, out)
	if r.Cache != nil {
		_ = r.Cache.Set(ctx, key, out)
	}
	r.recordSpan(ctx, execCtx, node, attempts, core.StatusCompleted, inputs, config, out, nil, startedAt)
	if r.Metrics != nil {
		r.Metrics.RecordNode(node.ToolRef, string(core.StatusCompleted), time.Since(startedAt))
	}
	return core.StatusCompleted, nil
}

// extractTokensUsed pops the reserved tokensUsedKey from a tool's outputs and
// returns it as an int64, 0 if absent or not numeric. Mutates out in place so
// the metadata key never reaches downstream nodes as a data value.
func extractTokensUsed(out map[string]any) int64 {
	v, ok := out[tokensUsedKey]
	if !ok {
		return 0
	}
	delete(out, tokensUsedKey)
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// executeConditional evaluates node.Condition against an environment built
// from the execution context's recorded outputs and returns Completed; the
// runner's advance logic marks the untaken branch's exclusive descendants
// Skipped based on the decision recorded here.
func (r *Runner) executeConditional(node core.NodeEntry, execCtx *core.ExecutionContext) (core.ExecutionStatus, error) {
	taken, err := evalCondition(node.Condition, execCtx)
	if err != nil {
		return core.StatusFailed, fmt.Errorf("runner: evaluating condition for node %s: %w", node.ID, err)
	}

	branch := node.FalseBranch
	if taken {
		branch = node.TrueBranch
	}
	other := node.TrueBranch
	if taken {
		other = node.FalseBranch
	}
	for _, id := range other {
		execCtx.SetStatus(id, core.StatusSkipped)
	}
	execCtx.SetOutput(node.ID, map[string]any{"taken": taken, "branch": branch})
	return core.StatusCompleted, nil
}

// evalCondition compiles and runs an expr-lang boolean expression against
// every recorded node's outputs, exposed as nested maps keyed by node id.
func evalCondition(condition string, execCtx *core.ExecutionContext) (bool, error) {
	if condition == "" {
		return true, nil
	}
	env := map[string]any{}
	for nodeID, status := range execCtx.Snapshot() {
		if status.Terminal() {
			if out, ok := execCtx.Output(nodeID); ok {
				env[nodeID] = out
			}
		}
	}
	out, err := expr.Eval(condition, env)
	if err != nil {
		return false, err
	}
	truthy, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("runner: condition %q did not evaluate to a boolean", condition)
	}
	return truthy, nil
}

// executeLoop re-runs the primitive nodes named by LoopBody in sequence, up
// to MaxIterations times, stopping early once Condition evaluates false (an
// empty condition always runs the full iteration count). Loop bodies only
// name primitive nodes by id within the same spec; their outputs accumulate
// under the loop node's own output keyed by iteration index.
func (r *Runner) executeLoop(ctx context.Context, spec *core.WorkflowSpec, node core.NodeEntry, execCtx *core.ExecutionContext) (core.ExecutionStatus, error) {
	maxIter := node.MaxIterations
	if maxIter <= 0 {
		maxIter = 1
	}

	var iterations []map[string]any
	for i := 0; i < maxIter; i++ {
		if node.Condition != "" {
			cont, err := evalCondition(node.Condition, execCtx)
			if err != nil {
				return core.StatusFailed, fmt.Errorf("runner: evaluating loop condition for node %s: %w", node.ID, err)
			}
			if !cont {
				break
			}
		}

		iterOut := map[string]any{}
		for _, bodyID := range node.LoopBody {
			bodyNode, ok := spec.NodeByID(bodyID)
			if !ok {
				return core.StatusFailed, fmt.Errorf("runner: loop %s body node %s not found", node.ID, bodyID)
			}
			status, err := r.executeNode(ctx, spec, bodyNode, execCtx)
			execCtx.SetStatus(bodyID, status)
			if err != nil {
				return core.StatusFailed, fmt.Errorf("runner: loop %s iteration %d: %w", node.ID, i, err)
			}
			if out, ok := execCtx.Output(bodyID); ok {
				iterOut[bodyID] = out
			}
		}
		iterations = append(iterations, iterOut)
	}

	execCtx.SetOutput(node.ID, map[string]any{"iterations": iterations})
	return core.StatusCompleted, nil
}

// executeSubgraph runs the composite/subgraph node's referenced
// WorkflowSpec recursively, sharing the parent run's policy and budget but a
// fresh ExecutionContext, then republishes the nested outputs matching the
// node's declared output ports under the node's own id.
func (r *Runner) executeSubgraph(ctx context.Context, node core.NodeEntry, execCtx *core.ExecutionContext) (core.ExecutionStatus, error) {
	if r.Subgraphs == nil {
		return core.StatusFailed, fmt.Errorf("runner: node %s references subgraph %q but no resolver is configured", node.ID, node.Subgraph)
	}
	nested, ok := r.Subgraphs.Resolve(node.Subgraph)
	if !ok {
		return core.StatusFailed, fmt.Errorf("runner: subgraph %q not found for node %s", node.Subgraph, node.ID)
	}

	childCtx := core.NewExecutionContext(uuid.NewString(), execCtx.Policy, execCtx.Budget())
	record, err := r.Execute(ctx, nested, childCtx)
	if err != nil {
		return core.StatusFailed, fmt.Errorf("runner: executing subgraph %q for node %s: %w", node.Subgraph, node.ID, err)
	}
	if record.Status == core.StatusFailed {
		return core.StatusFailed, fmt.Errorf("runner: subgraph %q for node %s did not complete successfully", node.Subgraph, node.ID)
	}

	out := map[string]any{}
	for _, port := range node.Outputs {
		for _, n := range nested.Nodes {
			if v, ok := childCtx.OutputPort(n.ID, port.Name); ok {
				out[port.Name] = v
				break
			}
		}
	}
	execCtx.SetOutput(node.ID, out)
	return core.StatusCompleted, nil
}

// dispatchConfig merges a node's declared tool config with the runtime
// wiring keys ("__command", "__args", "__image", "__module_path",
// "__entry_point", "__endpoint", "__handler_id") each Adapter implementation
// reads from ToolInput.Config, derived from the tool's RuntimeSpec.
func dispatchConfig(nodeConfig map[string]any, rt core.RuntimeSpec) map[string]any {
	merged := make(map[string]any, len(nodeConfig)+4)
	for k, v := range nodeConfig {
		merged[k] = v
	}
	if rt.Command != "" {
		merged["__command"] = rt.Command
	}
	if len(rt.Args) > 0 {
		merged["__args"] = rt.Args
	}
	if rt.Image != "" {
		merged["__image"] = rt.Image
	}
	if rt.ModulePath != "" {
		merged["__module_path"] = rt.ModulePath
	}
	if rt.EntryPoint != "" {
		merged["__entry_point"] = rt.EntryPoint
	}
	if rt.Endpoint != "" {
		merged["__endpoint"] = rt.Endpoint
	}
	if rt.HandlerID != "" {
		merged["__handler_id"] = rt.HandlerID
	}
	return merged
}

// resolveInputs reads every predecessor's output named by an incoming data
// edge, keyed by the target port name.
func resolveInputs(spec *core.WorkflowSpec, nodeID string, execCtx *core.ExecutionContext) map[string]any {
	inputs := map[string]any{}
	for _, e := range spec.Edges {
		if e.TargetNode != nodeID || e.Kind != core.EdgeKindData {
			continue
		}
		if v, ok := execCtx.OutputPort(e.SourceNode, e.SourcePort); ok {
			inputs[e.TargetPort] = v
		}
	}
	return inputs
}

func (r *Runner) recordCacheOutcome(hit bool) {
	if r.Metrics == nil {
		return
	}
	if hit {
		r.Metrics.RecordCacheHit()
	} else {
		r.Metrics.RecordCacheMiss()
	}
}

func (r *Runner) recordSpan(ctx context.Context, execCtx *core.ExecutionContext, node core.NodeEntry, attempt int, status core.ExecutionStatus, inputs, config map[string]any, output map[string]any, execErr error, startedAt time.Time) {
	if r.Spans == nil {
		return
	}
	span := core.NodeSpan{
		SpanID:      uuid.NewString(),
		ExecutionID: execCtx.ExecutionID,
		NodeID:      node.ID,
		ToolRef:     node.ToolRef,
		Attempt:     attempt,
		StartedAt:   startedAt,
		Environment: captureEnvironment(),
	}
	span.Input, _ = canonicalJSON(inputs)
	span.Config, _ = canonicalJSON(config)
	errMsg := ""
	if execErr != nil {
		errMsg = execErr.Error()
	}
	outBytes, _ := canonicalJSON(output)
	span.Finalize(status, outBytes, errMsg, time.Now())
	span.CacheHit = status == core.StatusCacheHit
	_ = r.Spans.RecordSpan(ctx, span)
}

// captureEnvironment snapshots process environment variables prefixed with
// daemon.envPrefix, the same namespace daemon/config.go reads its own
// configuration from, so a span's environment records only this system's
// own settings rather than the whole host environment.
func captureEnvironment() map[string]string {
	const prefix = "WORKFLOWCORE_"
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, prefix) {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		env[parts[0]] = parts[1]
	}
	return env
}
