package daemon_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrun-ai/workflowcore/core"
	"github.com/windrun-ai/workflowcore/daemon"
	"github.com/windrun-ai/workflowcore/gateway"
	"github.com/windrun-ai/workflowcore/runner"
)

type fakeTools struct {
	tools map[string]core.ToolInterface
}

func (f *fakeTools) Get(ref string) (core.ToolInterface, error) {
	t, ok := f.tools[ref]
	if !ok {
		return core.ToolInterface{}, errors.New("tool not found")
	}
	return t, nil
}

func writeWorkflowSpecFile(t *testing.T, dir string, spec core.WorkflowSpec) string {
	t.Helper()
	data, err := json.Marshal(spec)
	require.NoError(t, err)
	path := filepath.Join(dir, spec.ID+".json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func newTestScheduler(t *testing.T, handler gateway.Handler) (*daemon.Scheduler, *daemon.MemoryScheduleStore) {
	t.Helper()
	gw := gateway.New(5 * time.Second)
	native := gateway.NewNativeAdapter()
	gw.Register(core.RuntimeNative, native)
	native.RegisterHandler("step", handler)

	tools := &fakeTools{tools: map[string]core.ToolInterface{
		"demo/step@1.0.0": {
			Ref:        "demo/step@1.0.0",
			SideEffect: core.SideEffectPure,
			Runtime:    core.RuntimeSpec{Variant: core.RuntimeNative, HandlerID: "step"},
		},
	}}

	r := runner.New(tools, gw, runner.NewMemoryCache(), 2)
	store := daemon.NewMemoryScheduleStore()
	sched, err := daemon.NewScheduler(daemon.SchedulerConfig{Store: store, Runner: r, Policy: core.DefaultPolicy()})
	require.NoError(t, err)
	return sched, store
}

func TestScheduler_TriggerRunsWorkflowAndRecordsSuccess(t *testing.T) {
	sched, store := newTestScheduler(t, func(_ context.Context, _, _ map[string]any) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})

	dir := t.TempDir()
	spec := core.WorkflowSpec{
		ID: "wf-a",
		Nodes: []core.NodeEntry{
			{ID: "a", Kind: core.NodeKindPrimitive, ToolRef: "demo/step@1.0.0"},
		},
	}
	path := writeWorkflowSpecFile(t, dir, spec)

	require.NoError(t, store.Create(context.Background(), daemon.WorkflowSchedule{
		ID:           "sched-a",
		WorkflowPath: path,
		Cron:         "* * * * *",
		Enabled:      true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}))

	ran, err := sched.Trigger(context.Background(), "sched-a")
	require.NoError(t, err)
	assert.True(t, ran)

	got, found, err := store.Get(context.Background(), "sched-a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, daemon.ScheduleRunStatusCompleted, got.LastStatus)
	assert.NotEmpty(t, got.LastRunID)
	require.NotNil(t, got.LastRunAt)
}

func TestScheduler_TriggerRecordsFailureOnMissingWorkflowFile(t *testing.T) {
	sched, store := newTestScheduler(t, func(_ context.Context, _, _ map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	})

	require.NoError(t, store.Create(context.Background(), daemon.WorkflowSchedule{
		ID:           "sched-missing",
		WorkflowPath: "/nonexistent/workflow.json",
		Cron:         "* * * * *",
		Enabled:      true,
	}))

	ran, err := sched.Trigger(context.Background(), "sched-missing")
	require.NoError(t, err)
	assert.True(t, ran)

	got, found, err := store.Get(context.Background(), "sched-missing")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, daemon.ScheduleRunStatusFailed, got.LastStatus)
	assert.NotEmpty(t, got.LastError)
}

func TestScheduler_TriggerUnknownScheduleReturnsError(t *testing.T) {
	sched, _ := newTestScheduler(t, func(_ context.Context, _, _ map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	})

	_, err := sched.Trigger(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, daemon.ErrScheduleNotFound)
}

func TestScheduler_StartRejectsInvalidCronExpression(t *testing.T) {
	sched, store := newTestScheduler(t, func(_ context.Context, _, _ map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	})

	require.NoError(t, store.Create(context.Background(), daemon.WorkflowSchedule{
		ID:      "sched-bad-cron",
		Cron:    "not a cron expression",
		Enabled: true,
	}))

	// Start logs the rejection rather than failing outright -- one malformed
	// entry must not prevent every other schedule from loading.
	require.NoError(t, sched.Start(context.Background()))
	require.NoError(t, sched.Stop(context.Background()))
}
