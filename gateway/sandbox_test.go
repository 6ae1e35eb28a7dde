package gateway_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrun-ai/workflowcore/gateway"
)

type fakeSandboxHost struct {
	gotModule, gotEntry string
}

func (f *fakeSandboxHost) Call(_ context.Context, modulePath, entryPoint string, input []byte) ([]byte, error) {
	f.gotModule, f.gotEntry = modulePath, entryPoint
	return input, nil
}

func TestSandboxAdapter_UnwiredReportsUnsupported(t *testing.T) {
	a := gateway.NewSandboxAdapter(nil)
	_, err := a.Invoke(context.Background(), gateway.ToolInput{})
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrUnsupportedRuntime)
}

func TestSandboxAdapter_DelegatesToHost(t *testing.T) {
	host := &fakeSandboxHost{}
	a := gateway.NewSandboxAdapter(host)

	out, err := a.Invoke(context.Background(), gateway.ToolInput{
		Config: map[string]any{"__module_path": "mod.wasm", "__entry_point": "run"},
		Inputs: map[string]any{"x": float64(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, "mod.wasm", host.gotModule)
	assert.Equal(t, "run", host.gotEntry)
	assert.Equal(t, float64(2), out.Outputs["x"])
}
