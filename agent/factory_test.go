package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcouncil/agent"
	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/internal/testutil"
	"github.com/hupe1980/agentcouncil/quota"
)

func TestFactory_BuiltinTypes(t *testing.T) {
	f := agent.NewFactory()

	assert.ElementsMatch(t, []core.AgentType{
		core.AgentTypeCurious, core.AgentTypeCustom, core.AgentTypePlanner,
		core.AgentTypeResearch, core.AgentTypeSynthesizer, core.AgentTypeValidator,
	}, f.Types())

	a, err := f.New(core.NewAgentTask(core.AgentTypeResearch, "r", ""), nil)
	require.NoError(t, err)
	assert.IsType(t, &agent.ResearchAgent{}, a)

	_, err = f.New(core.NewAgentTask("unknown", "x", ""), nil)
	assert.Error(t, err)
}

func TestFactory_RegisterReplaces(t *testing.T) {
	env, _, _ := newEnv(t, testutil.TextStep("custom reply"))

	f := agent.NewFactory()
	f.Register(core.AgentTypeCustom, func(task core.AgentTask, env *agent.Env) (agent.Agent, error) {
		return agent.NewCustomAgent(task, env, func(o *agent.CustomOptions) {
			o.Instruction = agent.NewInstructionFromText("Answer as a pirate: {{.Query}}")
		}), nil
	})

	a, err := f.New(core.NewAgentTask(core.AgentTypeCustom, "c", ""), env)
	require.NoError(t, err)

	out, err := agent.Execute(context.Background(), a, agent.Input{Query: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "custom reply", out.Summary())
}

func TestSpawnSubAgent_RespectsAdmission(t *testing.T) {
	env, _, _ := newEnv(t)
	env.Identity = core.Identity{UserID: "u1", Tier: core.TierFree}
	env.Admission = quota.New(func(o *quota.Options) {
		o.Limits = map[core.Tier]quota.Limits{core.TierFree: {ConcurrentAgents: 1}}
	})

	release, err := env.Admission.AcquireAgent(context.Background(), env.Identity)
	require.NoError(t, err)
	defer release()

	parent := agent.NewBaseAgent(core.NewAgentTask(core.AgentTypeResearch, "p", ""), env)

	_, err = parent.SpawnSubAgent(context.Background(), core.AgentTypeResearch, "child", "", agent.Input{Query: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrQuotaExceeded))
	assert.Equal(t, 0, parent.SubAgentsSpawned())
}
