package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallBudget(t *testing.T) {
	b := NewCallBudget(2)

	assert.True(t, b.Take())
	assert.True(t, b.Take())
	assert.False(t, b.Take())
	assert.Equal(t, 2, b.Used())
	assert.Equal(t, 0, b.Remaining())

	unlimited := NewCallBudget(0)
	for i := 0; i < 10; i++ {
		assert.True(t, unlimited.Take())
	}
	assert.Equal(t, -1, unlimited.Remaining())
}

func TestCallBudget_Concurrent(t *testing.T) {
	b := NewCallBudget(50)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Take() {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 50, granted)
}

func TestSystemProfile_Merge(t *testing.T) {
	base := SystemProfile{OS: "linux", Distro: "debian", Extra: map[string]string{"init": "systemd"}}
	partial := SystemProfile{Distro: "ubuntu", Version: "24.04", Extra: map[string]string{"cpu": "arm"}}

	merged := base.Merge(partial)

	assert.Equal(t, "linux", merged.OS)
	assert.Equal(t, "ubuntu", merged.Distro)
	assert.Equal(t, "24.04", merged.Version)
	assert.Equal(t, map[string]string{"init": "systemd", "cpu": "arm"}, merged.Extra)
	assert.Equal(t, "debian", base.Distro, "merge must not mutate the receiver")

	assert.True(t, SystemProfile{}.IsEmpty())
	assert.False(t, merged.IsEmpty())
}

func TestCircuitOpenError(t *testing.T) {
	var err error = &CircuitOpenError{AgentType: AgentTypeResearch, RetryAfter: 30 * time.Second}
	wrapped := fmt.Errorf("execute: %w", err)

	assert.True(t, errors.Is(wrapped, ErrCircuitOpen))

	var coe *CircuitOpenError
	require.True(t, errors.As(wrapped, &coe))
	assert.Equal(t, AgentTypeResearch, coe.AgentType)
	assert.Contains(t, err.Error(), "research")
}

func TestEventConstructors(t *testing.T) {
	task := NewAgentTask(AgentTypePlanner, "Plan", "make a plan")

	spawn := NewSpawnEvent(task)
	assert.Equal(t, EventSpawn, spawn.Kind)
	require.NotNil(t, spawn.Spawn)
	assert.Equal(t, "Plan", spawn.Spawn.Label)
	assert.Equal(t, task.ID, spawn.AgentID)

	status := NewStatusEvent(task.Info(), StatusDone)
	assert.True(t, status.IsTerminal())
	assert.False(t, NewThinkingEvent(task.Info(), "hmm").IsTerminal())
	assert.False(t, NewErrorEvent(task.Info(), ErrorCodeAgent, "boom").IsTerminal())
	assert.True(t, NewErrorEvent(task.Info(), ErrorCodeCircuitOpen, "open").IsTerminal())

	done := NewDoneEvent(DonePayload{Citations: []Citation{{URL: "https://a"}}})
	assert.Equal(t, EventMessageDone, done.Kind)
	assert.Empty(t, done.AgentID)
	assert.NotEqual(t, spawn.ID, done.ID)
}

func TestContent_Accessors(t *testing.T) {
	c := Content{Role: RoleAssistant, Parts: []Part{
		TextPart{Text: "hello "},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "1", Name: "calculate"}},
		TextPart{Text: "world"},
	}}

	assert.Equal(t, "hello world", c.Text())
	require.Len(t, c.FunctionCalls(), 1)
	assert.Equal(t, "calculate", c.FunctionCalls()[0].Name)
}
