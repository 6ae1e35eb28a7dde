package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionContext_SetAndGetOutput(t *testing.T) {
	ctx := NewExecutionContext("exec-1", DefaultPolicy(), NewBudgetTracker(CostLimit{}))
	ctx.SetOutput("node-a", map[string]any{"result": "ok"})

	out, ok := ctx.Output("node-a")
	assert.True(t, ok)
	assert.Equal(t, "ok", out["result"])

	v, ok := ctx.OutputPort("node-a", "result")
	assert.True(t, ok)
	assert.Equal(t, "ok", v)
}

func TestExecutionContext_StatusDefaultsToPending(t *testing.T) {
	ctx := NewExecutionContext("exec-1", DefaultPolicy(), NewBudgetTracker(CostLimit{}))
	assert.Equal(t, StatusPending, ctx.Status("unknown"))
	ctx.SetStatus("node-a", StatusRunning)
	assert.Equal(t, StatusRunning, ctx.Status("node-a"))
}

func TestExecutionContext_ConcurrentReadsAndWrites(t *testing.T) {
	ctx := NewExecutionContext("exec-1", DefaultPolicy(), NewBudgetTracker(CostLimit{}))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			ctx.SetStatus("node", StatusRunning)
		}(i)
		go func(i int) {
			defer wg.Done()
			ctx.Status("node")
		}(i)
	}
	wg.Wait()
}

func TestExecutionRecord_CountersBalanced(t *testing.T) {
	r := ExecutionRecord{TotalNodes: 3, CompletedNodes: 2, FailedNodes: 1}
	assert.True(t, r.CountersBalanced())
	r.TotalNodes = 4
	assert.False(t, r.CountersBalanced())
}
