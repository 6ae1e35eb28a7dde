package gateway

import "context"

// ContainerRuntime is the seam a real Docker/OCI backend would implement:
// run image with an input payload over stdin (or a mounted volume) and
// return the output payload.
type ContainerRuntime interface {
	Run(ctx context.Context, image string, input []byte) ([]byte, error)
}

// ContainerAdapter dispatches to a ContainerRuntime. With no runtime wired in
// it reports ErrUnsupportedRuntime, matching the declared-but-unimplemented
// stance for this variant.
type ContainerAdapter struct {
	runtime ContainerRuntime
}

// NewContainerAdapter wraps runtime, or nil to leave the variant unsupported.
func NewContainerAdapter(runtime ContainerRuntime) *ContainerAdapter {
	return &ContainerAdapter{runtime: runtime}
}

// Invoke delegates to the wrapped ContainerRuntime, or fails with
// ErrUnsupportedRuntime if none is configured.
func (a *ContainerAdapter) Invoke(ctx context.Context, in ToolInput) (ToolOutput, error) {
	if a.runtime == nil {
		return ToolOutput{}, ErrUnsupportedRuntime
	}
	image, _ := in.Config["__image"].(string)
	payload, err := marshalInputs(in.Inputs)
	if err != nil {
		return ToolOutput{}, err
	}
	raw, err := a.runtime.Run(ctx, image, payload)
	if err != nil {
		return ToolOutput{}, err
	}
	outputs, err := unmarshalOutputs(raw)
	if err != nil {
		return ToolOutput{}, err
	}
	return ToolOutput{Outputs: outputs}, nil
}
