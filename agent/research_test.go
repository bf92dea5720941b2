package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcouncil/agent"
	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/internal/testutil"
)

func TestResearch_DeepensOnceAndMergesByURL(t *testing.T) {
	env, m, rec := newEnv(t,
		testutil.NewStep().
			Call("web_search", `{"query":"nginx ubuntu"}`).
			Call("web_search", `{"query":"nginx reverse proxy"}`).
			Build(),
		testutil.TextStep("Install nginx with apt and enable the service."),
		testutil.TextStep("nginx TLS configuration"),
		// sub-agent, one level deeper
		testutil.NewStep().
			Call("web_search", `{"query":"nginx tls"}`).
			Call("web_search", `{"query":"nginx ubuntu"}`).
			Build(),
		testutil.TextStep("Use certbot for certificates."),
	)

	task := core.NewAgentTask(core.AgentTypeResearch, "Research", "Find install steps")
	a := agent.NewResearchAgent(task, env)

	out, err := agent.Execute(context.Background(), a, agent.Input{Query: "how do I set up nginx on ubuntu 22.04"})
	require.NoError(t, err)

	ro, ok := out.(*agent.ResearchOutput)
	require.True(t, ok)

	assert.Equal(t, []string{"nginx TLS configuration"}, ro.SubTopics)
	assert.Len(t, spawnsOf(rec, task.ID), 1)
	assert.Equal(t, 1, a.SubAgentsSpawned())
	assert.Equal(t, 5, m.Calls())

	// 4 parent hits plus 2 new sub hits; the repeated query collapses
	seen := map[string]bool{}
	for _, c := range ro.Citations {
		assert.False(t, seen[c.URL], "duplicate %s", c.URL)
		seen[c.URL] = true
	}

	assert.Len(t, ro.Citations, 6)
	assert.Contains(t, ro.Text, "certbot")
}

func TestResearch_NoDeepeningForShortQuery(t *testing.T) {
	env, m, rec := newEnv(t,
		testutil.NewStep().Call("web_search", `{"query":"nginx"}`).Call("search_wikipedia", `{"query":"nginx"}`).Build(),
		testutil.TextStep("nginx is a web server."),
	)

	task := core.NewAgentTask(core.AgentTypeResearch, "Research", "")

	out, err := agent.Execute(context.Background(), agent.NewResearchAgent(task, env), agent.Input{Query: "what is nginx"})
	require.NoError(t, err)

	ro := out.(*agent.ResearchOutput)
	assert.Len(t, ro.Citations, 3)
	assert.Empty(t, ro.SubTopics)
	assert.Empty(t, spawnsOf(rec, task.ID))
	assert.Equal(t, 2, m.Calls())
}

func TestResearch_DuplicateURLsCollapse(t *testing.T) {
	env, _, _ := newEnv(t,
		testutil.NewStep().Call("web_search", `{"query":"nginx"}`).Call("web_search", `{"query":"nginx"}`).Build(),
		testutil.TextStep("done"),
	)

	out, err := agent.Execute(context.Background(),
		agent.NewResearchAgent(core.NewAgentTask(core.AgentTypeResearch, "Research", ""), env),
		agent.Input{Query: "nginx"})
	require.NoError(t, err)

	ro := out.(*agent.ResearchOutput)
	require.Len(t, ro.Citations, 2)

	// docs.* outranks an unknown blog
	assert.Equal(t, "https://docs.example.org/nginx", ro.Citations[0].URL)
	assert.Greater(t, ro.Citations[0].Confidence, ro.Citations[1].Confidence)
}

func TestResearch_StrategyCapsCitations(t *testing.T) {
	step := testutil.NewStep()
	for _, q := range []string{"a", "b", "c", "d"} {
		step.Call("web_search", `{"query":"`+q+`"}`)
	}

	env, _, _ := newEnv(t, step.Build(), testutil.TextStep("done"))

	out, err := agent.Execute(context.Background(),
		agent.NewResearchAgent(core.NewAgentTask(core.AgentTypeResearch, "Research", ""), env),
		agent.Input{Query: "letters", Data: map[string]any{"strategy": "quick"}})
	require.NoError(t, err)

	ro := out.(*agent.ResearchOutput)
	assert.Equal(t, agent.StrategyQuick, ro.Strategy)
	assert.Len(t, ro.Citations, agent.StrategyQuick.MaxResults())
}

func TestResearch_SubTopicNoneSkipsSpawn(t *testing.T) {
	env, _, rec := newEnv(t,
		testutil.NewStep().Call("web_search", `{"query":"x"}`).Call("web_search", `{"query":"y"}`).Build(),
		testutil.TextStep("answer"),
		testutil.TextStep("NONE"),
	)

	task := core.NewAgentTask(core.AgentTypeResearch, "Research", "")

	out, err := agent.Execute(context.Background(), agent.NewResearchAgent(task, env),
		agent.Input{Query: "one two three four five six"})
	require.NoError(t, err)

	assert.Empty(t, out.(*agent.ResearchOutput).SubTopics)
	assert.Empty(t, spawnsOf(rec, task.ID))
}

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, agent.StrategyDeep, agent.ParseStrategy(" Deep "))
	assert.Equal(t, agent.StrategyAdaptive, agent.ParseStrategy("unknown"))
	assert.Equal(t, 10, agent.StrategyAdaptive.MaxResults())
	assert.Equal(t, 15, agent.StrategyDeep.MaxResults())
}
