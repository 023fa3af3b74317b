package metrics

import (
	"sync"
	"sync/atomic"
)

// automationStats holds counters for the rule engine. Kept simple/thread-safe
// for use from the evaluation path and exposition handlers.
type automationStats struct {
	rulesEvaluated  uint64
	rulesMatched    uint64
	actionsExecuted uint64
	actionsFailed   uint64
	mu              sync.Mutex
	actionsByType   map[string]uint64
}

var auto automationStats

// IncRuleEvaluated counts one rule considered for a trigger firing.
func IncRuleEvaluated() {
	atomic.AddUint64(&auto.rulesEvaluated, 1)
}

// IncRuleMatched counts one rule whose conditions all passed.
func IncRuleMatched() {
	atomic.AddUint64(&auto.rulesMatched, 1)
}

// IncActionExecuted counts one dispatched action by type.
func IncActionExecuted(actionType string) {
	atomic.AddUint64(&auto.actionsExecuted, 1)
	auto.mu.Lock()
	if auto.actionsByType == nil {
		auto.actionsByType = make(map[string]uint64)
	}
	auto.actionsByType[actionType]++
	auto.mu.Unlock()
}

// IncActionFailed counts one action whose handler reported an error.
func IncActionFailed() {
	atomic.AddUint64(&auto.actionsFailed, 1)
}

// AutomationSnapshot returns a copy of the current automation counters.
func AutomationSnapshot() (evaluated, matched, executed, failed uint64, byType map[string]uint64) {
	evaluated = atomic.LoadUint64(&auto.rulesEvaluated)
	matched = atomic.LoadUint64(&auto.rulesMatched)
	executed = atomic.LoadUint64(&auto.actionsExecuted)
	failed = atomic.LoadUint64(&auto.actionsFailed)
	auto.mu.Lock()
	defer auto.mu.Unlock()
	byType = make(map[string]uint64, len(auto.actionsByType))
	for k, v := range auto.actionsByType {
		byType[k] = v
	}
	return
}

// rateLimitStats holds counters for rate limit drops (HTTP 429).
type rateLimitStats struct {
	total    uint64
	mu       sync.Mutex
	byPrefix map[string]uint64
}

var rl rateLimitStats

// IncRateLimitDrop increments drop counters for the given prefix.
// Use prefix "global" for global limiter rejections.
func IncRateLimitDrop(prefix string) {
	if prefix == "" {
		prefix = "global"
	}
	atomic.AddUint64(&rl.total, 1)
	rl.mu.Lock()
	if rl.byPrefix == nil {
		rl.byPrefix = make(map[string]uint64)
	}
	rl.byPrefix[prefix]++
	rl.mu.Unlock()
}

// RateLimitSnapshot returns a copy of the current counters.
func RateLimitSnapshot() (total uint64, by map[string]uint64) {
	total = atomic.LoadUint64(&rl.total)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	by = make(map[string]uint64, len(rl.byPrefix))
	for k, v := range rl.byPrefix {
		by[k] = v
	}
	return total, by
}
