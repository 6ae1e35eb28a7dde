package registry

import (
	"sort"
	"sync"

	"github.com/windrun-ai/workflowcore/core"
)

// templateEntry pairs a workflow template with the task-type tags it matches.
type templateEntry struct {
	id        string
	taskTypes []string
	spec      core.WorkflowSpec
}

// TemplateStore holds workflow templates indexed by the task-type tags they
// declare, so the compiler's template-match stage can look up candidates by
// the classifier's output without depending on the compiler package.
type TemplateStore struct {
	mu      sync.RWMutex
	entries map[string]templateEntry
	order   []string
}

// NewTemplateStore returns an empty template store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{entries: make(map[string]templateEntry)}
}

// RegisterTemplate adds or overwrites a template under id, matched by any of taskTypes.
func (s *TemplateStore) RegisterTemplate(id string, taskTypes []string, spec core.WorkflowSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[id]; !exists {
		s.order = append(s.order, id)
	}
	s.entries[id] = templateEntry{id: id, taskTypes: taskTypes, spec: spec}
}

// TemplatesForTaskType returns every template declaring taskType, in
// registration order, for deterministic first-match selection by the caller.
func (s *TemplateStore) TemplatesForTaskType(taskType string) []core.WorkflowSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.WorkflowSpec
	for _, id := range s.order {
		e := s.entries[id]
		for _, t := range e.taskTypes {
			if t == taskType {
				out = append(out, e.spec)
				break
			}
		}
	}
	return out
}

// IDs returns every registered template id, sorted.
func (s *TemplateStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for id := range s.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
