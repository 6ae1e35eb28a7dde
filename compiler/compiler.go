package compiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/windrun-ai/workflowcore/core"
)

// Stage-level failure sentinels. All compile failures are fatal: the
// compiler never returns a partial WorkflowSpec alongside an error.
var (
	ErrClassificationFailed = errors.New("compiler: classification failed")
	ErrSlotFillingFailed    = errors.New("compiler: slot filling failed")
	ErrValidation           = errors.New("compiler: validation failed")
)

// Compiler wires the five compile stages against a registry and an optional
// LLM-fallback planner.
type Compiler struct {
	Resolver       ToolResolver
	Templates      TemplateSource
	Planner        Planner
	ValidatorRules []ValidatorRule
}

// New returns a Compiler with the default validator rules.
func New(resolver ToolResolver, templates TemplateSource, planner Planner) *Compiler {
	return &Compiler{
		Resolver:       resolver,
		Templates:      templates,
		Planner:        planner,
		ValidatorRules: DefaultValidatorRules(),
	}
}

// Compile runs classify -> slot-extract -> template-match -> type-check ->
// validator-insertion over prompt and returns the resulting WorkflowSpec.
func (c *Compiler) Compile(ctx context.Context, prompt string) (*core.WorkflowSpec, error) {
	taskType := Classify(prompt)
	slots := ExtractSlots(prompt, taskType)

	spec, err := MatchTemplate(ctx, c.Templates, c.Planner, prompt, taskType, slots)
	if err != nil {
		return nil, err
	}
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := TypeCheck(&spec, c.Resolver); err != nil {
		return nil, err
	}

	insertions, err := InsertValidators(&spec, c.Resolver, c.ValidatorRules)
	if err != nil {
		return nil, err
	}
	if len(insertions) > 0 {
		ApplyValidatorInsertions(&spec, insertions)
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("%w: after validator insertion: %v", ErrValidation, err)
		}
	}

	return &spec, nil
}
