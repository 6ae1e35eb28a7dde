// Package core provides the foundational domain types for workflowcore: the
// compiled workflow graph, its nodes, edges, ports, policies, and the
// execution/trace records produced by running it.
package core

import (
	"errors"
	"fmt"
	"time"
)

// Graph errors. These are fatal at compile time.
var (
	ErrNodeNotFound    = errors.New("core: node not found")
	ErrDuplicateNode   = errors.New("core: duplicate node id")
	ErrDanglingEdge    = errors.New("core: edge endpoint does not exist")
	ErrPortNotFound    = errors.New("core: port not found")
	ErrCycleDetected   = errors.New("core: cycle detected in workflow graph")
	ErrEmptyWorkflow   = errors.New("core: workflow has no nodes")
	ErrTypeMismatch    = errors.New("core: incompatible port types across edge")
	ErrDuplicateEdgeID = errors.New("core: duplicate edge id")
)

// NodeKind discriminates the NodeEntry sum type.
type NodeKind string

const (
	NodeKindPrimitive   NodeKind = "primitive"
	NodeKindComposite   NodeKind = "composite"
	NodeKindConditional NodeKind = "conditional"
	NodeKindLoop        NodeKind = "loop"
	NodeKindSubgraph    NodeKind = "subgraph"
)

// NodeEntry is one node in a WorkflowSpec. Exactly one of the kind-specific
// fields is populated, selected by Kind. Dispatch on Kind with a switch rather
// than a type hierarchy.
type NodeEntry struct {
	ID   string   `json:"id" yaml:"id"`
	Kind NodeKind `json:"kind" yaml:"kind"`

	// Primitive
	ToolRef     string          `json:"tool_ref,omitempty" yaml:"tool_ref,omitempty"`
	Config      map[string]any  `json:"config,omitempty" yaml:"config,omitempty"`
	RetryPolicy *RetryPolicy    `json:"retry_policy,omitempty" yaml:"retry_policy,omitempty"`

	// Composite
	Inputs     []Port `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs    []Port `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Subgraph   string `json:"subgraph,omitempty" yaml:"subgraph,omitempty"`

	// Control flow (conditional/loop/subgraph)
	Condition    string   `json:"condition,omitempty" yaml:"condition,omitempty"`
	TrueBranch   []string `json:"true_branch,omitempty" yaml:"true_branch,omitempty"`
	FalseBranch  []string `json:"false_branch,omitempty" yaml:"false_branch,omitempty"`
	LoopBody     []string `json:"loop_body,omitempty" yaml:"loop_body,omitempty"`
	MaxIterations int     `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
}

// InputPort resolves a named input port on a composite node, or looks the
// port up via the supplied tool interface for a primitive node.
func (n NodeEntry) InputPort(name string, tool *ToolInterface) (Port, bool) {
	if n.Kind == NodeKindComposite {
		return findPort(n.Inputs, name)
	}
	if tool != nil {
		return tool.InputPort(name)
	}
	return Port{}, false
}

// OutputPort resolves a named output port, mirroring InputPort.
func (n NodeEntry) OutputPort(name string, tool *ToolInterface) (Port, bool) {
	if n.Kind == NodeKindComposite {
		return findPort(n.Outputs, name)
	}
	if tool != nil {
		return tool.OutputPort(name)
	}
	return Port{}, false
}

// EdgeKind tags what an edge carries.
type EdgeKind string

const (
	EdgeKindData    EdgeKind = "data"
	EdgeKindControl EdgeKind = "control"
	EdgeKindError   EdgeKind = "error"
)

// EdgeSpec is a directed data-dependency between two node ports.
type EdgeSpec struct {
	ID         string   `json:"id" yaml:"id"`
	Kind       EdgeKind `json:"kind" yaml:"kind"`
	SourceNode string   `json:"source_node" yaml:"source_node"`
	SourcePort string   `json:"source_port" yaml:"source_port"`
	TargetNode string   `json:"target_node" yaml:"target_node"`
	TargetPort string   `json:"target_port" yaml:"target_port"`
}

// Metadata carries descriptive, non-semantic information about a WorkflowSpec.
type Metadata struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string    `json:"version" yaml:"version"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// Variable is a workflow-level declared input or configuration value.
type Variable struct {
	Name     string   `json:"name" yaml:"name"`
	Type     PortType `json:"type" yaml:"type"`
	Default  any      `json:"default,omitempty" yaml:"default,omitempty"`
	Required bool     `json:"required,omitempty" yaml:"required,omitempty"`
}

// WorkflowSpec is the compiled, validated artifact produced by the compiler.
// It is immutable after successful validation: callers replace it wholesale
// rather than mutating nodes/edges in place.
type WorkflowSpec struct {
	ID        string      `json:"id" yaml:"id"`
	Metadata  Metadata    `json:"metadata" yaml:"metadata"`
	Nodes     []NodeEntry `json:"nodes" yaml:"nodes"`
	Edges     []EdgeSpec  `json:"edges" yaml:"edges"`
	Variables []Variable  `json:"variables,omitempty" yaml:"variables,omitempty"`
	Ports     []Port      `json:"ports,omitempty" yaml:"ports,omitempty"`

	nodeIndex map[string]int
}

// NodeByID resolves a node by id. Builds a lazy index on first use.
func (w *WorkflowSpec) NodeByID(id string) (NodeEntry, bool) {
	w.ensureIndex()
	i, ok := w.nodeIndex[id]
	if !ok {
		return NodeEntry{}, false
	}
	return w.Nodes[i], true
}

func (w *WorkflowSpec) ensureIndex() {
	if w.nodeIndex != nil && len(w.nodeIndex) == len(w.Nodes) {
		return
	}
	w.nodeIndex = make(map[string]int, len(w.Nodes))
	for i, n := range w.Nodes {
		w.nodeIndex[n.ID] = i
	}
}

// Predecessors returns the distinct source node ids of every edge (of any
// kind) whose target is nodeID.
func (w *WorkflowSpec) Predecessors(nodeID string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range w.Edges {
		if e.TargetNode == nodeID && !seen[e.SourceNode] {
			seen[e.SourceNode] = true
			out = append(out, e.SourceNode)
		}
	}
	return out
}

// Successors returns the distinct target node ids of every edge sourced at nodeID.
func (w *WorkflowSpec) Successors(nodeID string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range w.Edges {
		if e.SourceNode == nodeID && !seen[e.TargetNode] {
			seen[e.TargetNode] = true
			out = append(out, e.TargetNode)
		}
	}
	return out
}

// Validate checks structural invariants shared by every accepted WorkflowSpec:
// non-empty, every edge endpoint exists, and the edge set forms a DAG.
// Port-type compatibility is checked separately by the compiler's type-check
// stage (it needs Registry access to resolve primitive-node ports).
func (w *WorkflowSpec) Validate() error {
	if len(w.Nodes) == 0 {
		return ErrEmptyWorkflow
	}
	w.ensureIndex()

	seenEdgeIDs := make(map[string]bool)
	for _, e := range w.Edges {
		if e.ID != "" {
			if seenEdgeIDs[e.ID] {
				return fmt.Errorf("%w: %s", ErrDuplicateEdgeID, e.ID)
			}
			seenEdgeIDs[e.ID] = true
		}
		if _, ok := w.nodeIndex[e.SourceNode]; !ok {
			return fmt.Errorf("%w: edge %s source %q", ErrDanglingEdge, e.ID, e.SourceNode)
		}
		if _, ok := w.nodeIndex[e.TargetNode]; !ok {
			return fmt.Errorf("%w: edge %s target %q", ErrDanglingEdge, e.ID, e.TargetNode)
		}
	}

	if _, err := w.TopologicalOrder(); err != nil {
		return err
	}
	return nil
}

// TopologicalOrder returns node ids in a valid execution order via Kahn's
// algorithm, operating over EdgeSpec rather than a simple adjacency list.
// Returns ErrCycleDetected if the edge set is not acyclic.
func (w *WorkflowSpec) TopologicalOrder() ([]string, error) {
	inDegree := make(map[string]int, len(w.Nodes))
	adj := make(map[string][]string, len(w.Nodes))
	for _, n := range w.Nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range w.Edges {
		if _, ok := inDegree[e.TargetNode]; !ok {
			continue // dangling edges are reported by Validate, not here
		}
		inDegree[e.TargetNode]++
		adj[e.SourceNode] = append(adj[e.SourceNode], e.TargetNode)
	}

	queue := make([]string, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	order := make([]string, 0, len(w.Nodes))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		for _, succ := range adj[cur] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(order) != len(w.Nodes) {
		return nil, ErrCycleDetected
	}
	return order, nil
}
