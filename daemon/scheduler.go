package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/windrun-ai/workflowcore/core"
	"github.com/windrun-ai/workflowcore/runner"
)

// standardCronParser accepts the five-field minute/hour/dom/month/dow form
// used throughout the pack (no seconds field, no CRON_TZ prefixes --
// schedules always run against the daemon process's local clock).
var standardCronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Scheduler runs WorkflowSchedule entries on their cron expression via a
// robfig/cron/v3 engine, skipping a tick if the previous run for that
// schedule is still in flight and recording the outcome of every attempt
// back to the store.
type Scheduler struct {
	store  ScheduleStore
	runner *runner.Runner
	policy core.Policy
	logger *slog.Logger

	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
	active  map[string]struct{}
}

// SchedulerConfig wires a Scheduler to its collaborators.
type SchedulerConfig struct {
	Store  ScheduleStore
	Runner *runner.Runner
	Policy core.Policy
	Logger *slog.Logger
}

// NewScheduler constructs a Scheduler. Runner and Store are required.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("daemon: scheduler runner is nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("daemon: scheduler store is nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:   cfg.Store,
		runner:  cfg.Runner,
		policy:  cfg.Policy,
		logger:  logger,
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
		active:  make(map[string]struct{}),
	}, nil
}

// Start loads every enabled schedule from the store and begins the cron
// engine. It does not block.
func (s *Scheduler) Start(ctx context.Context) error {
	schedules, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("daemon: listing schedules: %w", err)
	}
	for _, sched := range schedules {
		if !sched.Enabled {
			continue
		}
		if err := s.addEntry(sched); err != nil {
			s.logger.Error("schedule entry rejected", "schedule_id", sched.ID, "error", err)
		}
	}
	s.cron.Start()
	return nil
}

// Stop drains in-flight cron jobs and halts the engine. It blocks until every
// already-fired job function has returned (not until the workflow run it
// launched in a goroutine completes).
func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload re-reads the store and reconciles the cron engine's entries:
// removed/disabled schedules are unscheduled, new/changed ones are
// (re)scheduled. Used after the store is edited out-of-band (e.g. a CLI
// "schedule add" command against a shared store).
func (s *Scheduler) Reload(ctx context.Context) error {
	schedules, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("daemon: listing schedules: %w", err)
	}

	seen := make(map[string]struct{}, len(schedules))
	for _, sched := range schedules {
		seen[sched.ID] = struct{}{}
		s.removeEntry(sched.ID)
		if !sched.Enabled {
			continue
		}
		if err := s.addEntry(sched); err != nil {
			s.logger.Error("schedule entry rejected", "schedule_id", sched.ID, "error", err)
		}
	}

	s.mu.Lock()
	for id := range s.entries {
		if _, ok := seen[id]; !ok {
			s.cron.Remove(s.entries[id])
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) addEntry(sched WorkflowSchedule) error {
	if _, err := standardCronParser.Parse(sched.Cron); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", sched.Cron, err)
	}
	id := sched.ID
	entryID, err := s.cron.AddFunc(sched.Cron, func() { s.runDue(id) })
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[id] = entryID
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) removeEntry(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
}

// runDue is the cron callback: it re-fetches the schedule (in case it was
// disabled or deleted since the last Reload), skips the tick on overlap, and
// otherwise runs the workflow in its own goroutine so a slow run never
// blocks the cron engine's single dispatch thread.
func (s *Scheduler) runDue(id string) {
	ctx := context.Background()
	sched, found, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Error("load schedule for tick", "schedule_id", id, "error", err)
		return
	}
	if !found || !sched.Enabled {
		return
	}

	if s.markActive(id) {
		s.markSkippedOverlap(ctx, sched)
		return
	}
	go s.runSchedule(sched)
}

// Trigger runs one schedule immediately and synchronously, skipping it (and
// returning false) if a run for that id is already in flight. Used by the
// CLI's manual "daemon trigger" command and by tests that do not want to
// wait on the cron engine's own clock.
func (s *Scheduler) Trigger(ctx context.Context, id string) (bool, error) {
	sched, found, err := s.store.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("daemon: loading schedule %q: %w", id, err)
	}
	if !found {
		return false, fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
	}
	if s.markActive(id) {
		return false, nil
	}
	s.runSchedule(sched)
	return true, nil
}

func (s *Scheduler) runSchedule(sched WorkflowSchedule) {
	defer s.unmarkActive(sched.ID)

	ctx := context.Background()
	executionID := uuid.NewString()
	now := time.Now().UTC()

	running := sched
	running.LastStatus = ScheduleRunStatusRunning
	running.LastError = ""
	running.UpdatedAt = now
	if err := s.store.Update(ctx, running); err != nil {
		s.logger.Error("mark schedule running", "schedule_id", sched.ID, "error", err)
		return
	}

	spec, err := loadWorkflowSpecFile(sched.WorkflowPath)
	if err == nil {
		_, err = s.runner.Execute(ctx, spec, core.NewExecutionContext(executionID, s.policy, core.NewBudgetTracker(s.policy.CostLimit)))
	}

	finish := time.Now().UTC()
	latest, found, getErr := s.store.Get(ctx, sched.ID)
	if getErr != nil || !found {
		return
	}
	latest.LastRunAt = &finish
	latest.UpdatedAt = finish
	if err != nil {
		latest.LastStatus = ScheduleRunStatusFailed
		latest.LastError = err.Error()
		s.logger.Error("scheduled workflow run failed", "schedule_id", sched.ID, "execution_id", executionID, "error", err)
	} else {
		latest.LastStatus = ScheduleRunStatusCompleted
		latest.LastError = ""
		latest.LastRunID = executionID
	}
	if err := s.store.Update(ctx, latest); err != nil {
		s.logger.Error("persist schedule run result", "schedule_id", sched.ID, "error", err)
	}
}

func (s *Scheduler) markSkippedOverlap(ctx context.Context, sched WorkflowSchedule) {
	now := time.Now().UTC()
	sched.LastStatus = ScheduleRunStatusSkippedOverlap
	sched.LastError = "skipped because the previous scheduled run is still active"
	sched.UpdatedAt = now
	if err := s.store.Update(ctx, sched); err != nil {
		s.logger.Error("persist overlap skip", "schedule_id", sched.ID, "error", err)
	}
}

// markActive reports whether id was already active (in which case it stays
// unchanged) and marks it active otherwise.
func (s *Scheduler) markActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[id]; ok {
		return true
	}
	s.active[id] = struct{}{}
	return false
}

func (s *Scheduler) unmarkActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}
