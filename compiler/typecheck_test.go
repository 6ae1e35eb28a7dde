package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/windrun-ai/workflowcore/core"
)

type fakeResolver map[string]core.ToolInterface

func (f fakeResolver) Get(ref string) (core.ToolInterface, error) {
	t, ok := f[ref]
	if !ok {
		return core.ToolInterface{}, errors.New("not found")
	}
	return t, nil
}

func echoTool(ref string) core.ToolInterface {
	return core.ToolInterface{
		Ref:        ref,
		SideEffect: core.SideEffectPure,
		Inputs:     []core.Port{{Name: "in", Type: core.PortTypeString}},
		Outputs:    []core.Port{{Name: "out", Type: core.PortTypeString}},
	}
}

func TestTypeCheck_CompatibleEdgePasses(t *testing.T) {
	resolver := fakeResolver{"core/a@1.0.0": echoTool("core/a@1.0.0"), "core/b@1.0.0": echoTool("core/b@1.0.0")}
	spec := &core.WorkflowSpec{
		Nodes: []core.NodeEntry{
			{ID: "a", Kind: core.NodeKindPrimitive, ToolRef: "core/a@1.0.0"},
			{ID: "b", Kind: core.NodeKindPrimitive, ToolRef: "core/b@1.0.0"},
		},
		Edges: []core.EdgeSpec{
			{ID: "e1", SourceNode: "a", SourcePort: "out", TargetNode: "b", TargetPort: "in"},
		},
	}
	require.NoError(t, TypeCheck(spec, resolver))
}

func TestTypeCheck_IncompatibleTypesFails(t *testing.T) {
	numberTool := echoTool("core/num@1.0.0")
	numberTool.Outputs = []core.Port{{Name: "out", Type: core.PortTypeNumber}}
	resolver := fakeResolver{"core/num@1.0.0": numberTool, "core/b@1.0.0": echoTool("core/b@1.0.0")}
	spec := &core.WorkflowSpec{
		Nodes: []core.NodeEntry{
			{ID: "a", Kind: core.NodeKindPrimitive, ToolRef: "core/num@1.0.0"},
			{ID: "b", Kind: core.NodeKindPrimitive, ToolRef: "core/b@1.0.0"},
		},
		Edges: []core.EdgeSpec{
			{ID: "e1", SourceNode: "a", SourcePort: "out", TargetNode: "b", TargetPort: "in"},
		},
	}
	err := TypeCheck(spec, resolver)
	require.Error(t, err)
	var tcErr *TypeCheckError
	require.ErrorAs(t, err, &tcErr)
	assert.Equal(t, "e1", tcErr.EdgeID)
}

func TestTypeCheck_MissingNodeFails(t *testing.T) {
	resolver := fakeResolver{"core/a@1.0.0": echoTool("core/a@1.0.0")}
	spec := &core.WorkflowSpec{
		Nodes: []core.NodeEntry{
			{ID: "a", Kind: core.NodeKindPrimitive, ToolRef: "core/a@1.0.0"},
		},
		Edges: []core.EdgeSpec{
			{ID: "e1", SourceNode: "a", SourcePort: "out", TargetNode: "missing", TargetPort: "in"},
		},
	}
	err := TypeCheck(spec, resolver)
	require.Error(t, err)
	var tcErr *TypeCheckError
	require.ErrorAs(t, err, &tcErr)
}
