package compiler

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/windrun-ai/workflowcore/core"
)

// ValidatorRule decides, for a given edge between two tools, whether a
// validator node should be inserted and which kind. Condition is an
// expr-lang expression evaluated against a small environment exposing the
// edge's source/target side-effect tags and capability tags; a truthy result
// inserts InsertKind.
type ValidatorRule struct {
	Name       string
	Condition  string
	InsertKind string // e.g. "pii_filter", "format_check"
}

// DefaultValidatorRules gates PII-filter insertion on an edge whose source
// tool has the external_call side effect and whose target tool carries a
// capability tag prefixed "pii.", and format-check insertion on the same
// kind of edge into a target carrying a "format." capability tag.
// Side-effect mismatch detection is resolved by the configured rules rather
// than hardcoded.
func DefaultValidatorRules() []ValidatorRule {
	return []ValidatorRule{
		{
			Name:       "pii-guard",
			Condition:  `sourceSideEffect == "external_call" && hasCapabilityPrefix(targetCapabilities, "pii.")`,
			InsertKind: "pii_filter",
		},
		{
			Name:       "format-guard",
			Condition:  `sourceSideEffect == "external_call" && hasCapabilityPrefix(targetCapabilities, "format.")`,
			InsertKind: "format_check",
		},
	}
}

// ValidatorInsertion describes one validator node the compiler must splice
// into the graph between two existing nodes.
type ValidatorInsertion struct {
	EdgeID     string
	InsertKind string
}

// InsertValidators inspects every edge whose endpoints are both primitive
// nodes backed by resolvable tools and evaluates rules against their
// side-effect and capability metadata. If tool metadata cannot be resolved
// for either endpoint, the edge passes through unchanged (§4.1 "If the tool
// metadata is insufficient, pass through unchanged" -- insufficient metadata
// is not a compile error).
func InsertValidators(spec *core.WorkflowSpec, resolver ToolResolver, rules []ValidatorRule) ([]ValidatorInsertion, error) {
	var insertions []ValidatorInsertion

	env := map[string]any{
		"hasCapabilityPrefix": func(caps []string, prefix string) bool {
			for _, c := range caps {
				if strings.HasPrefix(c, prefix) {
					return true
				}
			}
			return false
		},
	}

	programs := make([]*validatorProgram, 0, len(rules))
	for _, rule := range rules {
		p, err := expr.Compile(rule.Condition, expr.Env(exprEnvSample()))
		if err != nil {
			return nil, fmt.Errorf("compiler: compiling validator rule %q: %w", rule.Name, err)
		}
		programs = append(programs, &validatorProgram{rule: rule, program: p})
	}

	for _, edge := range spec.Edges {
		srcNode, ok := spec.NodeByID(edge.SourceNode)
		if !ok || srcNode.Kind != core.NodeKindPrimitive {
			continue
		}
		dstNode, ok := spec.NodeByID(edge.TargetNode)
		if !ok || dstNode.Kind != core.NodeKindPrimitive {
			continue
		}
		srcTool, err := resolver.Get(srcNode.ToolRef)
		if err != nil {
			continue
		}
		dstTool, err := resolver.Get(dstNode.ToolRef)
		if err != nil {
			continue
		}

		runEnv := map[string]any{
			"sourceSideEffect":    string(srcTool.SideEffect),
			"targetSideEffect":    string(dstTool.SideEffect),
			"sourceCapabilities":  srcTool.Capabilities,
			"targetCapabilities":  dstTool.Capabilities,
			"hasCapabilityPrefix": env["hasCapabilityPrefix"],
		}

		for _, p := range programs {
			out, err := expr.Run(p.program, runEnv)
			if err != nil {
				continue
			}
			if truthy, ok := out.(bool); ok && truthy {
				insertions = append(insertions, ValidatorInsertion{EdgeID: edge.ID, InsertKind: p.rule.InsertKind})
				break
			}
		}
	}
	return insertions, nil
}

// ApplyValidatorInsertions splices a new primitive validator node onto each
// edge named by insertions: the original edge is redirected into the
// validator's input, and a fresh edge connects the validator's output to the
// original target port.
func ApplyValidatorInsertions(spec *core.WorkflowSpec, insertions []ValidatorInsertion) {
	byEdge := make(map[string]ValidatorInsertion, len(insertions))
	for _, ins := range insertions {
		byEdge[ins.EdgeID] = ins
	}
	if len(byEdge) == 0 {
		return
	}

	var newNodes []core.NodeEntry

	for i, edge := range spec.Edges {
		ins, ok := byEdge[edge.ID]
		if !ok {
			continue
		}
		validatorID := fmt.Sprintf("%s__validator_%s", edge.ID, ins.InsertKind)
		newNodes = append(newNodes, core.NodeEntry{
			ID:      validatorID,
			Kind:    core.NodeKindPrimitive,
			ToolRef: "builtin/" + ins.InsertKind + "@1.0.0",
		})

		originalTarget := edge.TargetNode
		originalTargetPort := edge.TargetPort
		spec.Edges[i].TargetNode = validatorID
		spec.Edges[i].TargetPort = "input"

		spec.Edges = append(spec.Edges, core.EdgeSpec{
			ID:         validatorID + "__out",
			Kind:       edge.Kind,
			SourceNode: validatorID,
			SourcePort: "output",
			TargetNode: originalTarget,
			TargetPort: originalTargetPort,
		})
	}
	spec.Nodes = append(spec.Nodes, newNodes...)
}

type validatorProgram struct {
	rule    ValidatorRule
	program *vm.Program
}

func exprEnvSample() map[string]any {
	return map[string]any{
		"sourceSideEffect":    "",
		"targetSideEffect":    "",
		"sourceCapabilities":  []string{},
		"targetCapabilities":  []string{},
		"hasCapabilityPrefix": func([]string, string) bool { return false },
	}
}
