package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/windrun-ai/workflowcore/core"
)

func sampleTool(ref string) core.ToolInterface {
	return core.ToolInterface{
		Ref:        ref,
		SideEffect: core.SideEffectPure,
		Runtime:    core.RuntimeSpec{Variant: core.RuntimeNative, HandlerID: "noop"},
		Inputs:     []core.Port{{Name: "text", Type: core.PortTypeString, Required: true}},
		Outputs:    []core.Port{{Name: "result", Type: core.PortTypeString}},
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := New()
	r.Register(sampleTool("core/echo@1.0.0"))

	got, err := r.Get("core/echo@1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "core/echo@1.0.0", got.Ref)
	assert.Len(t, got.Inputs, 1)
}

func TestRegistry_GetNotFound(t *testing.T) {
	r := New()
	_, err := r.Get("missing/tool@1.0.0")
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestRegistry_ReRegisterOverwritesInPlace(t *testing.T) {
	r := New()
	r.Register(sampleTool("core/echo@1.0.0"))
	r.Register(sampleTool("core/other@1.0.0"))

	updated := sampleTool("core/echo@1.0.0")
	updated.CostHint = 5
	r.Register(updated)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "core/echo@1.0.0", list[0].Ref, "order preserved across re-registration")
	assert.Equal(t, 5.0, list[0].CostHint)
}

func TestRegistry_Unregister(t *testing.T) {
	r := New()
	r.Register(sampleTool("core/echo@1.0.0"))
	r.Unregister("core/echo@1.0.0")
	assert.False(t, r.Has("core/echo@1.0.0"))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_SearchByCapability(t *testing.T) {
	r := New()
	a := sampleTool("core/pii-scan@1.0.0")
	a.Capabilities = []string{"pii.detect"}
	b := sampleTool("core/format@1.0.0")
	b.Capabilities = []string{"format.check"}
	r.Register(a)
	r.Register(b)

	got := r.SearchByCapability("pii.detect")
	require.Len(t, got, 1)
	assert.Equal(t, "core/pii-scan@1.0.0", got[0].Ref)

	assert.Empty(t, r.SearchByCapability("unknown.capability"))
}
