package compiler

import (
	"errors"
	"fmt"

	"github.com/windrun-ai/workflowcore/core"
)

// ErrTypeCheckFailed is wrapped into every TypeCheckError returned by TypeCheck.
var ErrTypeCheckFailed = errors.New("compiler: type check failed")

// TypeCheckError identifies the offending edge and the reason type-checking
// rejected it.
type TypeCheckError struct {
	EdgeID string
	Reason string
}

func (e *TypeCheckError) Error() string {
	return fmt.Sprintf("compiler: type check failed on edge %s: %s", e.EdgeID, e.Reason)
}

func (e *TypeCheckError) Unwrap() error {
	return ErrTypeCheckFailed
}

// ToolResolver resolves a fully-qualified tool reference to its interface.
// Satisfied by *registry.Registry.
type ToolResolver interface {
	Get(ref string) (core.ToolInterface, error)
}

// TypeCheck resolves source and target ports for every edge in spec via
// resolver (for primitive nodes) or the node's own declared port lists (for
// composites), and fails with a *TypeCheckError identifying the offending
// edge if a node/port is missing or the port types are incompatible.
func TypeCheck(spec *core.WorkflowSpec, resolver ToolResolver) error {
	for _, edge := range spec.Edges {
		if edge.Kind == core.EdgeKindControl || edge.Kind == core.EdgeKindError {
			// Control and error edges sequence execution or route failures;
			// they carry no typed payload through declared ports, so
			// conditional/loop branch targets are exempt from port resolution.
			continue
		}
		srcNode, ok := spec.NodeByID(edge.SourceNode)
		if !ok {
			return &TypeCheckError{EdgeID: edge.ID, Reason: fmt.Sprintf("source node %q does not exist", edge.SourceNode)}
		}
		dstNode, ok := spec.NodeByID(edge.TargetNode)
		if !ok {
			return &TypeCheckError{EdgeID: edge.ID, Reason: fmt.Sprintf("target node %q does not exist", edge.TargetNode)}
		}

		srcTool, err := resolveToolFor(srcNode, resolver)
		if err != nil {
			return &TypeCheckError{EdgeID: edge.ID, Reason: err.Error()}
		}
		dstTool, err := resolveToolFor(dstNode, resolver)
		if err != nil {
			return &TypeCheckError{EdgeID: edge.ID, Reason: err.Error()}
		}

		srcPort, ok := srcNode.OutputPort(edge.SourcePort, srcTool)
		if !ok {
			return &TypeCheckError{EdgeID: edge.ID, Reason: fmt.Sprintf("source port %q not found on node %q", edge.SourcePort, edge.SourceNode)}
		}
		dstPort, ok := dstNode.InputPort(edge.TargetPort, dstTool)
		if !ok {
			return &TypeCheckError{EdgeID: edge.ID, Reason: fmt.Sprintf("target port %q not found on node %q", edge.TargetPort, edge.TargetNode)}
		}

		if !srcPort.Type.CompatibleWith(dstPort.Type) {
			return &TypeCheckError{
				EdgeID: edge.ID,
				Reason: fmt.Sprintf("incompatible port types: %s -> %s", srcPort.Type, dstPort.Type),
			}
		}
	}
	return nil
}

// resolveToolFor returns the ToolInterface backing a primitive node, or nil
// for composite/control-flow nodes (which carry their own port lists).
func resolveToolFor(n core.NodeEntry, resolver ToolResolver) (*core.ToolInterface, error) {
	if n.Kind != core.NodeKindPrimitive {
		return nil, nil
	}
	tool, err := resolver.Get(n.ToolRef)
	if err != nil {
		return nil, fmt.Errorf("resolving tool %q for node %q: %w", n.ToolRef, n.ID, err)
	}
	return &tool, nil
}
