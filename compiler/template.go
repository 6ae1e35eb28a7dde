package compiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/windrun-ai/workflowcore/core"
)

// ErrNoTemplateMatch is returned when no registered template matches the
// classified task type and no Planner fallback is configured.
var ErrNoTemplateMatch = errors.New("compiler: no template match")

// TemplateSource supplies candidate templates for a classified task type. It
// is satisfied by *registry.TemplateStore without compiler importing registry
// for anything beyond this narrow lookup.
type TemplateSource interface {
	TemplatesForTaskType(taskType string) []core.WorkflowSpec
}

// Planner is the injected LLM-fallback contract used when no template
// matches: it turns a prompt and its extracted slots into a candidate
// WorkflowSpec. Implementations may call out to a model provider and may fail.
type Planner interface {
	Plan(ctx context.Context, prompt string, slots Slots) (core.WorkflowSpec, error)
}

// StaticPlanner is a deterministic Planner suitable for tests: it always
// returns the same pre-built spec (or a configured error), never performing
// any network call.
type StaticPlanner struct {
	Spec core.WorkflowSpec
	Err  error
}

// Plan implements Planner.
func (p StaticPlanner) Plan(_ context.Context, _ string, _ Slots) (core.WorkflowSpec, error) {
	if p.Err != nil {
		return core.WorkflowSpec{}, p.Err
	}
	return p.Spec, nil
}

// MatchTemplate selects the first template source declares for taskType. If
// none matches and planner is non-nil, it falls back to the planner; if
// planner is nil, it fails with ErrNoTemplateMatch.
func MatchTemplate(ctx context.Context, source TemplateSource, planner Planner, prompt string, taskType TaskType, slots Slots) (core.WorkflowSpec, error) {
	if source != nil {
		candidates := source.TemplatesForTaskType(string(taskType))
		if len(candidates) > 0 {
			return candidates[0], nil
		}
	}
	if planner == nil {
		return core.WorkflowSpec{}, fmt.Errorf("%w: task type %s", ErrNoTemplateMatch, taskType)
	}
	spec, err := planner.Plan(ctx, prompt, slots)
	if err != nil {
		return core.WorkflowSpec{}, fmt.Errorf("compiler: llm fallback: %w", err)
	}
	return spec, nil
}
