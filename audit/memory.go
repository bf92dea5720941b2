package audit

import (
	"context"
	"sync"
	"time"
)

// DefaultMemoryLimit bounds a MemoryLogger created with a non-positive limit.
const DefaultMemoryLimit = 2048

// MemoryLogger keeps the most recent records in a bounded buffer.
type MemoryLogger struct {
	mu     sync.RWMutex
	buffer []Record
	limit  int
}

// NewMemoryLogger creates a logger retaining at most limit records.
func NewMemoryLogger(limit int) *MemoryLogger {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}

	return &MemoryLogger{
		buffer: make([]Record, 0, limit),
		limit:  limit,
	}
}

// Log appends the record, evicting the oldest one when full.
func (l *MemoryLogger) Log(_ context.Context, record Record) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.buffer) == l.limit {
		copy(l.buffer, l.buffer[1:])
		l.buffer = l.buffer[:len(l.buffer)-1]
	}

	l.buffer = append(l.buffer, record)

	return nil
}

// Query returns matching records in insertion order.
func (l *MemoryLogger) Query(_ context.Context, filter Filter) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []Record

	for _, r := range l.buffer {
		if !filter.Match(r) {
			continue
		}

		result = append(result, r)

		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}

	return result, nil
}

// Len returns the number of retained records.
func (l *MemoryLogger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.buffer)
}
