// Package gateway is the Execution Gateway: it dispatches a tool call to the
// runtime variant declared by the tool's RuntimeSpec and returns its output
// or a structured ExecutorError, wrapping every call in a timeout.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/windrun-ai/workflowcore/core"
)

// ErrUnsupportedRuntime is returned for runtime variants that have no working
// backend: container and sandbox when no runtime/host is configured, and any
// variant with no registered adapter.
var ErrUnsupportedRuntime = errors.New("gateway: unsupported runtime variant")

// ToolInput is the transport-agnostic invocation payload sent to an Adapter.
type ToolInput struct {
	ToolRef string
	Inputs  map[string]any
	Config  map[string]any
}

// ToolOutput is the transport-agnostic invocation result.
type ToolOutput struct {
	Outputs    map[string]any
	DurationMS int64
}

// ExecutorError wraps a runtime failure with the variant and tool ref that
// produced it, so the runner can log and trace it without re-deriving context.
type ExecutorError struct {
	Variant core.RuntimeVariant
	ToolRef string
	Err     error
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("gateway: %s dispatch of %s: %v", e.Variant, e.ToolRef, e.Err)
}

func (e *ExecutorError) Unwrap() error {
	return e.Err
}

// Adapter hides transport details for one runtime variant.
type Adapter interface {
	Invoke(ctx context.Context, in ToolInput) (ToolOutput, error)
}

// Gateway dispatches by RuntimeVariant to a registered Adapter, wrapping the
// call in a timeout derived from the runtime spec (falling back to
// defaultTimeout when unset).
type Gateway struct {
	adapters       map[core.RuntimeVariant]Adapter
	defaultTimeout time.Duration
}

// New returns a Gateway with the native, process, python, and remote
// (JSON-RPC over HTTP) adapters wired in, plus container/sandbox adapters
// with no backend, which report ErrUnsupportedRuntime.
func New(defaultTimeout time.Duration) *Gateway {
	g := &Gateway{
		adapters:       make(map[core.RuntimeVariant]Adapter),
		defaultTimeout: defaultTimeout,
	}
	g.Register(core.RuntimeNative, NewNativeAdapter())
	g.Register(core.RuntimeProcess, NewProcessAdapter())
	g.Register(core.RuntimePython, NewPythonAdapter())
	g.Register(core.RuntimeContainer, NewContainerAdapter(nil))
	g.Register(core.RuntimeSandbox, NewSandboxAdapter(nil))
	g.Register(core.RuntimeRemote, NewRemoteAdapter(nil))
	return g
}

// Register installs or overwrites the Adapter used for variant.
func (g *Gateway) Register(variant core.RuntimeVariant, adapter Adapter) {
	g.adapters[variant] = adapter
}

// Dispatch resolves the adapter for runtime.Variant and invokes it, bounding
// the call by runtime.TimeoutMS (or the gateway default when zero).
func (g *Gateway) Dispatch(ctx context.Context, toolRef string, runtime core.RuntimeSpec, in ToolInput) (ToolOutput, error) {
	adapter, ok := g.adapters[runtime.Variant]
	if !ok {
		return ToolOutput{}, &ExecutorError{Variant: runtime.Variant, ToolRef: toolRef, Err: ErrUnsupportedRuntime}
	}

	timeout := g.defaultTimeout
	if runtime.TimeoutMS > 0 {
		timeout = time.Duration(runtime.TimeoutMS) * time.Millisecond
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := adapter.Invoke(callCtx, in)
	if err != nil {
		return ToolOutput{}, &ExecutorError{Variant: runtime.Variant, ToolRef: toolRef, Err: err}
	}
	if out.DurationMS == 0 {
		out.DurationMS = time.Since(start).Milliseconds()
	}
	return out, nil
}
