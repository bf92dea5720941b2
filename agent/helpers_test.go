package agent_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcouncil/agent"
	"github.com/hupe1980/agentcouncil/breaker"
	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/internal/testutil"
	"github.com/hupe1980/agentcouncil/model"
	"github.com/hupe1980/agentcouncil/tool"
)

const scripted = "scripted"

// newEnv wires a scripted model behind every selection class, the fake
// toolkit and a private breaker registry.
func newEnv(t *testing.T, steps ...testutil.Step) (*agent.Env, *testutil.ScriptedModel, *testutil.Recorder) {
	t.Helper()

	m := testutil.NewScriptedModel(scripted, steps...)

	selector := model.NewSelector(func(o *model.SelectorOptions) {
		o.Classes = model.Classes{Reasoning: scripted, FastTool: scripted, LongContext: scripted, Balanced: scripted}
		o.Chain = []string{scripted}
	})

	pool := model.NewPool(selector)
	pool.Register(scripted, m)

	reg, err := tool.NewRegistryFromToolkit(testutil.FakeToolkit())
	require.NoError(t, err)

	rec := &testutil.Recorder{}

	return &agent.Env{
		Pool:     pool,
		Tools:    reg,
		Breakers: breaker.NewRegistry(breaker.Config{}),
		Emit:     rec.Emit,
	}, m, rec
}

func spawnsOf(rec *testutil.Recorder, parentID string) []core.Event {
	var out []core.Event
	for _, e := range rec.OfKind(core.EventSpawn) {
		if e.ParentAgentID == parentID {
			out = append(out, e)
		}
	}
	return out
}
