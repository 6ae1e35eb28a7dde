package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/windrun-ai/workflowcore/core"
)

func TestCompiler_CompileUsesTemplateWhenMatched(t *testing.T) {
	spec := core.WorkflowSpec{
		ID: "rag-template",
		Nodes: []core.NodeEntry{
			{ID: "retrieve", Kind: core.NodeKindPrimitive, ToolRef: "core/a@1.0.0"},
			{ID: "generate", Kind: core.NodeKindPrimitive, ToolRef: "core/b@1.0.0"},
		},
		Edges: []core.EdgeSpec{
			{ID: "e1", SourceNode: "retrieve", SourcePort: "out", TargetNode: "generate", TargetPort: "in"},
		},
	}
	templates := templateSourceFunc(func(taskType string) []core.WorkflowSpec {
		if taskType == string(TaskTypeRAG) {
			return []core.WorkflowSpec{spec}
		}
		return nil
	})
	resolver := fakeResolver{"core/a@1.0.0": echoTool("core/a@1.0.0"), "core/b@1.0.0": echoTool("core/b@1.0.0")}

	c := New(resolver, templates, nil)
	out, err := c.Compile(context.Background(), "RAG 파이프라인 만들어줘")
	require.NoError(t, err)
	assert.Equal(t, "rag-template", out.ID)
}

func TestCompiler_CompileFallsBackToPlannerWhenNoTemplate(t *testing.T) {
	fallbackSpec := core.WorkflowSpec{
		ID: "planner-spec",
		Nodes: []core.NodeEntry{
			{ID: "solo", Kind: core.NodeKindPrimitive, ToolRef: "core/a@1.0.0"},
		},
	}
	resolver := fakeResolver{"core/a@1.0.0": echoTool("core/a@1.0.0")}
	planner := StaticPlanner{Spec: fallbackSpec}

	c := New(resolver, templateSourceFunc(func(string) []core.WorkflowSpec { return nil }), planner)
	out, err := c.Compile(context.Background(), "compose a haiku")
	require.NoError(t, err)
	assert.Equal(t, "planner-spec", out.ID)
}

func TestCompiler_CompileFailsWithoutTemplateOrPlanner(t *testing.T) {
	resolver := fakeResolver{}
	c := New(resolver, templateSourceFunc(func(string) []core.WorkflowSpec { return nil }), nil)
	_, err := c.Compile(context.Background(), "compose a haiku")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoTemplateMatch)
}

type templateSourceFunc func(taskType string) []core.WorkflowSpec

func (f templateSourceFunc) TemplatesForTaskType(taskType string) []core.WorkflowSpec {
	return f(taskType)
}
