package core

import (
	"sync/atomic"
	"time"
)

// BudgetTracker holds thread-safe counters for one execution's resource
// consumption. Each record-and-check operation atomically increments its
// counter and compares against the configured cap. Token and monetary cost
// accounting are advisory: exceeding a cap does not abort an in-flight node,
// but the runner marks the whole run Failed at the next checkpoint.
type BudgetTracker struct {
	limit CostLimit
	start time.Time

	elapsedOverrideNanos int64 // for deterministic tests; 0 means "use wall clock"
	spentTokens          int64
	spentCostMicros      int64 // USD * 1e6, for exact integer arithmetic
}

// NewBudgetTracker starts a tracker against the given cost limit.
func NewBudgetTracker(limit CostLimit) *BudgetTracker {
	return &BudgetTracker{limit: limit, start: time.Now()}
}

// ElapsedSecs returns seconds elapsed since the tracker started.
func (b *BudgetTracker) ElapsedSecs() int64 {
	if n := atomic.LoadInt64(&b.elapsedOverrideNanos); n != 0 {
		return n / int64(time.Second)
	}
	return int64(time.Since(b.start).Seconds())
}

// SetElapsedOverride pins elapsed time for deterministic tests.
func (b *BudgetTracker) SetElapsedOverride(d time.Duration) {
	atomic.StoreInt64(&b.elapsedOverrideNanos, int64(d))
}

// CheckRunTime reports whether elapsed time is still within the whole-run
// wall-clock cap (always true when no cap is set).
func (b *BudgetTracker) CheckRunTime() bool {
	if b.limit.MaxExecutionTimeSecs <= 0 {
		return true
	}
	return b.ElapsedSecs() <= b.limit.MaxExecutionTimeSecs
}

// CheckNodeTime reports whether a single node's elapsed duration is within
// the per-node cap.
func (b *BudgetTracker) CheckNodeTime(elapsed time.Duration) bool {
	if b.limit.MaxNodeTimeSecs <= 0 {
		return true
	}
	return int64(elapsed.Seconds()) <= b.limit.MaxNodeTimeSecs
}

// RecordTokens atomically adds n to the spent-token counter and reports
// whether the run remains within its token cap.
func (b *BudgetTracker) RecordTokens(n int64) bool {
	total := atomic.AddInt64(&b.spentTokens, n)
	if b.limit.MaxTokens <= 0 {
		return true
	}
	return total <= b.limit.MaxTokens
}

// RecordCost atomically adds usd to the spent-cost counter and reports
// whether the run remains within its monetary cap.
func (b *BudgetTracker) RecordCost(usd float64) bool {
	total := atomic.AddInt64(&b.spentCostMicros, int64(usd*1e6))
	if b.limit.MaxCostUSD <= 0 {
		return true
	}
	return float64(total)/1e6 <= b.limit.MaxCostUSD
}

// SpentTokens returns the current token counter.
func (b *BudgetTracker) SpentTokens() int64 {
	return atomic.LoadInt64(&b.spentTokens)
}

// SpentCostUSD returns the current monetary counter.
func (b *BudgetTracker) SpentCostUSD() float64 {
	return float64(atomic.LoadInt64(&b.spentCostMicros)) / 1e6
}

// Exceeded reports whether any configured cap has been breached, used by the
// runner at dispatch checkpoints.
func (b *BudgetTracker) Exceeded() bool {
	if !b.CheckRunTime() {
		return true
	}
	if b.limit.MaxTokens > 0 && b.SpentTokens() > b.limit.MaxTokens {
		return true
	}
	if b.limit.MaxCostUSD > 0 && b.SpentCostUSD() > b.limit.MaxCostUSD {
		return true
	}
	return false
}
