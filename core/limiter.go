package core

import "sync"

// CallBudget bounds the number of model requests made by one tool loop.
// A max of zero or less means unlimited.
type CallBudget struct {
	max  int
	used int
	mu   sync.Mutex
}

// NewCallBudget creates a budget allowing limit calls.
func NewCallBudget(limit int) *CallBudget {
	return &CallBudget{max: limit}
}

// Take consumes one call and reports whether it was within the budget.
func (b *CallBudget) Take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.used >= b.max {
		return false
	}

	b.used++

	return true
}

// Used returns the number of calls taken so far.
func (b *CallBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.used
}

// Remaining returns how many calls are left, or -1 when unlimited.
func (b *CallBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max <= 0 {
		return -1
	}

	return b.max - b.used
}
