package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBudgetTracker_RecordTokensWithinCap(t *testing.T) {
	b := NewBudgetTracker(CostLimit{MaxTokens: 100})
	assert.True(t, b.RecordTokens(40))
	assert.True(t, b.RecordTokens(40))
	assert.False(t, b.RecordTokens(40)) // total 120 > 100
	assert.Equal(t, int64(120), b.SpentTokens())
}

func TestBudgetTracker_NoCapAlwaysPasses(t *testing.T) {
	b := NewBudgetTracker(CostLimit{})
	assert.True(t, b.RecordTokens(1_000_000))
}

func TestBudgetTracker_RecordCost(t *testing.T) {
	b := NewBudgetTracker(CostLimit{MaxCostUSD: 1.0})
	assert.True(t, b.RecordCost(0.5))
	assert.False(t, b.RecordCost(0.6))
	assert.InDelta(t, 1.1, b.SpentCostUSD(), 0.0001)
}

func TestBudgetTracker_ElapsedOverrideForDeterministicTests(t *testing.T) {
	b := NewBudgetTracker(CostLimit{MaxExecutionTimeSecs: 10})
	b.SetElapsedOverride(5 * time.Second)
	assert.True(t, b.CheckRunTime())
	b.SetElapsedOverride(20 * time.Second)
	assert.False(t, b.CheckRunTime())
}

func TestBudgetTracker_ConcurrentRecordTokensIsRaceFree(t *testing.T) {
	b := NewBudgetTracker(CostLimit{})
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.RecordTokens(1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), b.SpentTokens())
}
