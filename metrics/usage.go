package metrics

import (
	"sync"

	"github.com/hupe1980/agentcouncil/core"
)

type usageEntry struct {
	mu    sync.Mutex
	total core.TokenUsage
	runs  int
}

// UsageTracker accumulates token usage per accounting key (user or
// user/session). Updates for one key are serialized so concurrent
// connections of the same identity never lose increments.
type UsageTracker struct {
	mu      sync.Mutex
	entries map[string]*usageEntry
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{entries: make(map[string]*usageEntry)}
}

func (t *UsageTracker) entry(key string) *usageEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		e = &usageEntry{}
		t.entries[key] = e
	}

	return e
}

// Record adds u to key and returns the new total.
func (t *UsageTracker) Record(key string, u core.TokenUsage) core.TokenUsage {
	e := t.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.total = e.total.Add(u)
	e.runs++

	return e.total
}

// Total returns the accumulated usage of key.
func (t *UsageTracker) Total(key string) core.TokenUsage {
	t.mu.Lock()
	e, ok := t.entries[key]
	t.mu.Unlock()

	if !ok {
		return core.TokenUsage{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.total
}

// Records returns how many usages were recorded for key.
func (t *UsageTracker) Records(key string) int {
	t.mu.Lock()
	e, ok := t.entries[key]
	t.mu.Unlock()

	if !ok {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.runs
}
