package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/windrun-ai/workflowcore/core"
)

// Terminal/transient statuses recorded against a WorkflowSchedule after each
// scheduled attempt.
const (
	ScheduleRunStatusRunning        = "running"
	ScheduleRunStatusCompleted      = "completed"
	ScheduleRunStatusFailed         = "failed"
	ScheduleRunStatusSkippedOverlap = "skipped_overlap"
)

var (
	ErrScheduleExists   = errors.New("daemon: schedule already exists")
	ErrScheduleNotFound = errors.New("daemon: schedule not found")
)

// WorkflowSchedule binds a cron expression to a compiled workflow spec on
// disk. Variables is stored with the schedule but is not passed to the runs
// it starts.
type WorkflowSchedule struct {
	ID           string         `json:"id"`
	WorkflowPath string         `json:"workflow_path"`
	Cron         string         `json:"cron"`
	Enabled      bool           `json:"enabled"`
	Variables    map[string]any `json:"variables,omitempty"`

	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	LastRunID  string     `json:"last_run_id,omitempty"`
	LastStatus string     `json:"last_status,omitempty"`
	LastError  string     `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduleStore persists WorkflowSchedule entries for the Scheduler.
type ScheduleStore interface {
	List(ctx context.Context) ([]WorkflowSchedule, error)
	Get(ctx context.Context, id string) (WorkflowSchedule, bool, error)
	Create(ctx context.Context, sched WorkflowSchedule) error
	Update(ctx context.Context, sched WorkflowSchedule) error
	Delete(ctx context.Context, id string) error
}

// MemoryScheduleStore is an in-memory ScheduleStore, the default for daemon
// processes that do not need schedules to survive a restart.
type MemoryScheduleStore struct {
	mu    sync.RWMutex
	items map[string]WorkflowSchedule
}

// NewMemoryScheduleStore returns an empty store.
func NewMemoryScheduleStore() *MemoryScheduleStore {
	return &MemoryScheduleStore{items: make(map[string]WorkflowSchedule)}
}

func (s *MemoryScheduleStore) List(ctx context.Context) ([]WorkflowSchedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]WorkflowSchedule, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.items[id])
	}
	return out, nil
}

func (s *MemoryScheduleStore) Get(ctx context.Context, id string) (WorkflowSchedule, bool, error) {
	if err := ctx.Err(); err != nil {
		return WorkflowSchedule{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sched, ok := s.items[id]
	return sched, ok, nil
}

func (s *MemoryScheduleStore) Create(ctx context.Context, sched WorkflowSchedule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := strings.TrimSpace(sched.ID)
	if clean == "" {
		return fmt.Errorf("daemon: schedule id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[clean]; exists {
		return fmt.Errorf("%w: %s", ErrScheduleExists, clean)
	}
	sched.ID = clean
	s.items[clean] = sched
	return nil
}

func (s *MemoryScheduleStore) Update(ctx context.Context, sched WorkflowSchedule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[sched.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, sched.ID)
	}
	s.items[sched.ID] = sched
	return nil
}

func (s *MemoryScheduleStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

var _ ScheduleStore = (*MemoryScheduleStore)(nil)

// loadWorkflowSpecFile reads and decodes a compiled WorkflowSpec from a JSON
// file on disk, the on-disk form written by the CLI's "compile --output"
// subcommand.
func loadWorkflowSpecFile(path string) (*core.WorkflowSpec, error) {
	// #nosec G304 -- path comes from an operator-authored schedule entry.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("daemon: reading workflow spec %q: %w", path, err)
	}
	var spec core.WorkflowSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("daemon: parsing workflow spec %q: %w", path, err)
	}
	return &spec, nil
}
