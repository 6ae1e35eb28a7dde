package trace

import (
	"context"
	"sync"

	"github.com/windrun-ai/workflowcore/core"
)

// MemoryStore is a thread-safe in-memory Store, used in tests and by
// workspaces that do not configure a durable trace database.
type MemoryStore struct {
	mu    sync.RWMutex
	spans map[string]core.NodeSpan // spanID -> span
	order []string                 // spanID insertion order, for stable export
}

// NewMemoryStore returns an empty in-memory trace store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{spans: make(map[string]core.NodeSpan)}
}

func (s *MemoryStore) InsertSpan(_ context.Context, span core.NodeSpan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.spans[span.SpanID]; !exists {
		s.order = append(s.order, span.SpanID)
	}
	s.spans[span.SpanID] = span
	return nil
}

func (s *MemoryStore) QuerySpansByExecution(_ context.Context, executionID string) ([]core.NodeSpan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.NodeSpan
	for _, id := range s.order {
		span := s.spans[id]
		if span.ExecutionID == executionID {
			out = append(out, span)
		}
	}
	return out, nil
}

func (s *MemoryStore) QuerySpan(_ context.Context, spanID string) (core.NodeSpan, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	span, ok := s.spans[spanID]
	return span, ok, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
