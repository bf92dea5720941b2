package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcouncil/core"
)

func TestInMemoryStore_RoundTripIsolated(t *testing.T) {
	s := NewInMemoryStore()

	octx := core.OrchestratorContext{
		ChatID:        "c1",
		UserID:        "u1",
		SystemProfile: core.SystemProfile{OS: "linux", Extra: map[string]string{"wsl": "true"}},
	}
	octx = AppendTurn(octx, "install nginx", "run apt install nginx")

	require.NoError(t, s.Save(octx))

	// mutating the caller's copy does not leak into the store
	octx.SystemProfile.Extra["wsl"] = "false"
	octx.MessageHistory[0] = core.NewTextContent(core.RoleUser, "changed")

	got, ok := s.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "true", got.SystemProfile.Extra["wsl"])
	require.Len(t, got.MessageHistory, 2)
	assert.Equal(t, "install nginx", got.MessageHistory[0].Text())
	assert.Equal(t, core.RoleAssistant, got.MessageHistory[1].Role)

	_, ok = s.Get("missing")
	assert.False(t, ok)

	s.Delete("c1")
	_, ok = s.Get("c1")
	assert.False(t, ok)
}

func TestInMemoryStore_TrimsHistory(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	s := NewInMemoryStore(func(o *Options) {
		o.MaxHistory = 3
		o.Now = func() time.Time { return now }
	})

	octx := core.OrchestratorContext{ChatID: "c1"}
	for i := 0; i < 3; i++ {
		octx = AppendTurn(octx, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	require.NoError(t, s.Save(octx))

	got, _ := s.Get("c1")
	require.Len(t, got.MessageHistory, 3)
	assert.Equal(t, "a1", got.MessageHistory[0].Text())
	assert.Equal(t, "a2", got.MessageHistory[2].Text())

	at, ok := s.UpdatedAt("c1")
	require.True(t, ok)
	assert.Equal(t, now, at)
}

func TestAppendTurn_EmptyAnswer(t *testing.T) {
	octx := AppendTurn(core.OrchestratorContext{}, "hello", "")
	assert.Len(t, octx.MessageHistory, 1)
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	s := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i%4)
			_ = s.Save(core.OrchestratorContext{ChatID: id})
			s.Get(id)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		_, ok := s.Get(fmt.Sprintf("c%d", i))
		assert.True(t, ok)
	}
}
