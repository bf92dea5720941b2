package agentcouncil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcouncil/agent"
	"github.com/hupe1980/agentcouncil/audit"
	"github.com/hupe1980/agentcouncil/config"
	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/internal/testutil"
	"github.com/hupe1980/agentcouncil/model"
	"github.com/hupe1980/agentcouncil/orchestrator"
	"github.com/hupe1980/agentcouncil/tool"
)

const scripted = "scripted"

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Models.Classes = model.Classes{Reasoning: scripted, FastTool: scripted, LongContext: scripted, Balanced: scripted}
	cfg.Models.Chain = []string{scripted}
	cfg.Models.Providers = map[string]config.ProviderConfig{scripted: {Provider: config.ProviderOpenAI}}

	return cfg
}

func newCouncil(t *testing.T, cfg *config.Config, m model.Model) *Council {
	t.Helper()

	c, err := New(func(o *Options) {
		o.Config = cfg
		o.Toolkit = testutil.FakeToolkit()
		o.Models = map[string]model.Model{scripted: m}
		o.Registerer = prometheus.NewRegistry()
	})
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, c.Close()) })

	return c
}

func runTurn(t *testing.T, c *Council, octx core.OrchestratorContext, query string) ([]core.Event, error) {
	t.Helper()

	o := c.NewOrchestrator(octx)
	err := o.Process(context.Background(), query)
	o.Close()

	return testutil.Collect(o.Events()), err
}

func TestCouncil_GreetingTurn(t *testing.T) {
	m := testutil.NewScriptedModel(scripted, testutil.NewStep().Chunks("Hi", " there").Build())
	c := newCouncil(t, testConfig(), m)

	events, err := runTurn(t, c, core.OrchestratorContext{ChatID: "c1", UserID: "u1", Tier: core.TierFree}, "hello")
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, core.EventMessageDone, events[len(events)-1].Kind)
	assert.Equal(t, 1, m.Calls())

	records, err := c.Audit().Query(context.Background(), audit.Filter{Action: audit.ActionTurn})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "c1", records[0].ChatID)
}

func TestCouncil_RegistersToolkit(t *testing.T) {
	c := newCouncil(t, testConfig(), testutil.NewScriptedModel(scripted))

	assert.ElementsMatch(t, []string{
		tool.NameWebSearch, tool.NameSearchWikipedia, tool.NameCalculate,
		tool.NameValidateCommand, tool.NameLookupPackage, tool.NameLookupDocs,
	}, c.Tools().Names())
}

func TestCouncil_QuotaFromConfig(t *testing.T) {
	cfg := testConfig()
	free := cfg.Quotas["free"]
	free.RequestsPerMinute = 1
	cfg.Quotas["free"] = free

	m := testutil.NewScriptedModel(scripted, testutil.TextStep("Hi"))
	c := newCouncil(t, cfg, m)

	octx := core.OrchestratorContext{ChatID: "c2", UserID: "u2", Tier: core.TierFree}

	_, err := runTurn(t, c, octx, "hello")
	require.NoError(t, err)

	events, err := runTurn(t, c, octx, "hello")
	require.ErrorIs(t, err, core.ErrQuotaExceeded)
	assert.Equal(t, core.EventMessageDone, events[len(events)-1].Kind)
	assert.Equal(t, 1, m.Calls())
}

func TestCouncil_SQLiteAudit(t *testing.T) {
	cfg := testConfig()
	cfg.Audit = config.AuditConfig{Backend: config.AuditSQLite, Path: filepath.Join(t.TempDir(), "audit.db")}

	c := newCouncil(t, cfg, testutil.NewScriptedModel(scripted, testutil.TextStep("Hi")))

	_, err := runTurn(t, c, core.OrchestratorContext{ChatID: "c3", UserID: "u3"}, "hello")
	require.NoError(t, err)

	records, err := c.Audit().Query(context.Background(), audit.Filter{ChatID: "c3", Action: audit.ActionTurn})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCouncil_CredentialUsesDedicatedPool(t *testing.T) {
	m := testutil.NewScriptedModel(scripted, testutil.TextStep("Hi"))
	c := newCouncil(t, testConfig(), m)

	_, err := runTurn(t, c, core.OrchestratorContext{ChatID: "c4", UserID: "u4", ModelCredential: "sk-user"}, "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Calls())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Models.Chain = nil

	_, err := New(func(o *Options) {
		o.Config = cfg
		o.Registerer = prometheus.NewRegistry()
	})
	require.Error(t, err)
}

func TestCouncil_ConverseRemembersHistory(t *testing.T) {
	m := testutil.NewScriptedModel(scripted,
		testutil.NewStep().Chunks("Hi", "!").Build(),
		testutil.TextStep("Hello again"),
	)
	c := newCouncil(t, testConfig(), m)

	base := core.OrchestratorContext{ChatID: "c5", UserID: "u5"}

	var seen int

	res, err := c.Converse(context.Background(), base, "hello", func(_ *orchestrator.Orchestrator, _ core.Event) { seen++ })
	require.NoError(t, err)
	assert.Equal(t, "Hi!", res.Answer)
	require.NotNil(t, res.Done)
	assert.Positive(t, seen)

	res, err = c.Converse(context.Background(), base, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello again", res.Answer)

	reqs := m.Requests()
	require.Len(t, reqs, 2)

	var texts []string
	for _, content := range reqs[1].Contents {
		texts = append(texts, content.Text())
	}
	assert.Contains(t, texts, "hello")
	assert.Contains(t, texts, "Hi!")

	saved, ok := c.Sessions().Get("c5")
	require.True(t, ok)
	assert.Len(t, saved.MessageHistory, 4)
}

type echoArgs struct {
	Text string `json:"text"`
}

func TestCouncil_CustomToolAgentAndClassifier(t *testing.T) {
	var echoed []string

	echo := tool.Typed("echo", "Repeat the text.", func(_ context.Context, args echoArgs) (string, error) {
		echoed = append(echoed, args.Text)
		return args.Text, nil
	})

	factory := agent.NewFactory()
	factory.Register(core.AgentTypeCustom, func(task core.AgentTask, env *agent.Env) (agent.Agent, error) {
		return agent.NewCustomAgent(task, env, func(o *agent.CustomOptions) {
			o.Tools = []string{"echo"}
		}), nil
	})

	m := testutil.NewScriptedModel(scripted,
		testutil.NewStep().Call("echo", `{"text":"ping"}`).Build(),
		testutil.TextStep("echoed ping"),
		testutil.NewStep().Chunks("pong").Build(),
	)

	c, err := New(func(o *Options) {
		o.Config = testConfig()
		o.Models = map[string]model.Model{scripted: m}
		o.Registerer = prometheus.NewRegistry()
		o.Tools = []tool.Tool{echo}
		o.Factory = factory
		o.Classifier = func(string, core.SystemProfile) orchestrator.Classification {
			return orchestrator.Classification{
				Intent: orchestrator.IntentFactual,
				Pipeline: []orchestrator.Stage{
					{Type: core.AgentTypeCustom, Label: "Echo"},
					{Type: core.AgentTypeSynthesizer, Label: "Writer"},
				},
			}
		}
	})
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, c.Close()) })

	res, err := c.Converse(context.Background(), core.OrchestratorContext{ChatID: "c6", UserID: "u6"}, "echo ping", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"ping"}, echoed)
	assert.Equal(t, "pong", res.Answer)
	assert.Equal(t, 3, m.Calls())
	assert.Contains(t, c.Tools().Names(), "echo")
}
