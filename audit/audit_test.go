package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLogger_Bounded(t *testing.T) {
	l := NewMemoryLogger(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Log(ctx, Record{AgentID: fmt.Sprintf("a%d", i), Action: ActionAgentRun, Status: "done"}))
	}

	assert.Equal(t, 3, l.Len())

	records, err := l.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a2", records[0].AgentID)
	assert.Equal(t, "a4", records[2].AgentID)
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestMemoryLogger_Query(t *testing.T) {
	l := NewMemoryLogger(0)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = l.Log(ctx, Record{Timestamp: base, ChatID: "c1", AgentType: "research", Action: ActionAgentRun, Status: "done"})
	_ = l.Log(ctx, Record{Timestamp: base.Add(time.Minute), ChatID: "c1", AgentType: "planner", Action: ActionAgentRun, Status: "error"})
	_ = l.Log(ctx, Record{Timestamp: base.Add(2 * time.Minute), ChatID: "c2", AgentType: "research", Action: ActionAgentRejected, Status: "circuit_open"})

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"chat", Filter{ChatID: "c1"}, 2},
		{"type", Filter{AgentType: "research"}, 2},
		{"action", Filter{Action: ActionAgentRejected}, 1},
		{"status", Filter{Status: "error"}, 1},
		{"since", Filter{Since: base.Add(30 * time.Second)}, 2},
		{"until", Filter{Until: base.Add(30 * time.Second)}, 1},
		{"limit", Filter{Limit: 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestDiscard(t *testing.T) {
	var l Logger = Discard{}

	require.NoError(t, l.Log(context.Background(), Record{}))

	got, err := l.Query(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
