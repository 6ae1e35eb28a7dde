package gateway

import "context"

// SandboxHost is the seam a real isolated-module host (e.g. a WASM runtime)
// would implement: instantiate a module and call its exported entry point.
type SandboxHost interface {
	Call(ctx context.Context, modulePath, entryPoint string, input []byte) ([]byte, error)
}

// SandboxAdapter dispatches to a SandboxHost. With no host wired in it
// reports ErrUnsupportedRuntime.
type SandboxAdapter struct {
	host SandboxHost
}

// NewSandboxAdapter wraps host, or nil to leave the variant unsupported.
func NewSandboxAdapter(host SandboxHost) *SandboxAdapter {
	return &SandboxAdapter{host: host}
}

// Invoke delegates to the wrapped SandboxHost, or fails with
// ErrUnsupportedRuntime if none is configured.
func (a *SandboxAdapter) Invoke(ctx context.Context, in ToolInput) (ToolOutput, error) {
	if a.host == nil {
		return ToolOutput{}, ErrUnsupportedRuntime
	}
	modulePath, _ := in.Config["__module_path"].(string)
	entryPoint, _ := in.Config["__entry_point"].(string)
	payload, err := marshalInputs(in.Inputs)
	if err != nil {
		return ToolOutput{}, err
	}
	raw, err := a.host.Call(ctx, modulePath, entryPoint, payload)
	if err != nil {
		return ToolOutput{}, err
	}
	outputs, err := unmarshalOutputs(raw)
	if err != nil {
		return ToolOutput{}, err
	}
	return ToolOutput{Outputs: outputs}, nil
}
