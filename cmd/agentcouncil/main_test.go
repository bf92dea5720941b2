package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcouncil"
	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/internal/testutil"
	"github.com/hupe1980/agentcouncil/model"
)

const testConfig = `
models:
  classes:
    reasoning: scripted
    fast_tool: scripted
    long_context: scripted
    balanced: scripted
  chain: [scripted]
  providers:
    scripted:
      provider: openai
      api_key: sk-test
audit:
  backend: none
`

func run(t *testing.T, stdin string, m model.Model, args ...string) (string, error) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	var out, errOut bytes.Buffer

	ro := &rootOptions{
		stdin:  strings.NewReader(stdin),
		stdout: &out,
		stderr: &errOut,
		councilOpts: []func(o *agentcouncil.Options){func(o *agentcouncil.Options) {
			o.Models = map[string]model.Model{"scripted": m}
			o.Toolkit = testutil.FakeToolkit()
			o.Registerer = prometheus.NewRegistry()
		}},
	}

	cmd := newRootCommand(ro)
	cmd.SetArgs(append([]string{"--config", path, "--no-color", "--log-level", "error"}, args...))

	err := cmd.Execute()

	return out.String(), err
}

func TestAsk_Greeting(t *testing.T) {
	m := testutil.NewScriptedModel("scripted", testutil.NewStep().Chunks("Hi", " there").Usage(3, 2).Build())

	out, err := run(t, "", m, "ask", "hello")
	require.NoError(t, err)

	assert.Contains(t, out, "Hi there")
	assert.Contains(t, out, "1 agents, 5 tokens")
}

func TestChat_KeepsHistory(t *testing.T) {
	m := testutil.NewScriptedModel("scripted",
		testutil.NewStep().Chunks("Hi", " there").Usage(3, 2).Build(),
		testutil.NewStep().Chunks("Welcome back").Usage(3, 2).Build(),
	)

	out, err := run(t, "hello\n\nhey again\nexit\nignored\n", m, "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "Hi there")
	assert.Contains(t, out, "Welcome back")
	require.Equal(t, 2, m.Calls())

	var texts []string
	for _, c := range m.Requests()[1].Contents {
		texts = append(texts, c.Text())
	}

	assert.Contains(t, texts, "hello")
	assert.Contains(t, texts, "Hi there")
}

func TestAsk_RequiresQuery(t *testing.T) {
	_, err := run(t, "", testutil.NewScriptedModel("scripted"), "ask")
	require.Error(t, err)
}

func TestConfigShow_RedactsKeys(t *testing.T) {
	out, err := run(t, "", testutil.NewScriptedModel("scripted"), "config", "show")
	require.NoError(t, err)

	assert.Contains(t, out, "chain:")
	assert.Contains(t, out, "scripted")
	assert.NotContains(t, out, "sk-test")
}

func TestConfigShow_InvalidLogLevel(t *testing.T) {
	_, err := run(t, "", testutil.NewScriptedModel("scripted"), "config", "show", "--log-level", "loud")
	require.Error(t, err)
}

func TestLineAnswerer(t *testing.T) {
	var out bytes.Buffer

	a := newAnswerer(strings.NewReader("2\nFedora 40\n"), &out)

	q := core.QuestionPayload{ID: "q1", Text: "Which system?", Options: []string{"Ubuntu", "macOS"}, AllowCustom: true}

	got, err := a.Answer(q)
	require.NoError(t, err)
	assert.Equal(t, "macOS", got)
	assert.Contains(t, out.String(), "2) macOS")

	got, err = a.Answer(q)
	require.NoError(t, err)
	assert.Equal(t, "Fedora 40", got)

	_, err = a.Answer(q)
	assert.Error(t, err)
}

func TestLineAnswerer_Query(t *testing.T) {
	var out bytes.Buffer

	a := newAnswerer(strings.NewReader("  what is nginx  \nlast"), &out)

	got, err := a.Query()
	require.NoError(t, err)
	assert.Equal(t, "what is nginx", got)

	got, err = a.Query()
	require.NoError(t, err)
	assert.Equal(t, "last", got)

	_, err = a.Query()
	assert.ErrorIs(t, err, io.EOF)
	assert.Contains(t, out.String(), "you> ")
}

func TestPrinter(t *testing.T) {
	var out bytes.Buffer

	p := newPrinter(&out, true)

	task := core.AgentTask{ID: "a1", Type: core.AgentTypeResearch, Label: "Research", Description: "look it up", Depth: 1}
	info := task.Info()

	p.print(core.NewSpawnEvent(task))
	p.print(core.NewToolEvent(info, core.ToolPayload{Name: "web_search", Input: map[string]any{"query": "nginx"}, Status: core.ToolStarted}))
	p.print(core.NewChunkEvent(core.AgentInfo{}, "Answer"))
	p.print(core.NewDoneEvent(core.DonePayload{
		Citations: []core.Citation{{URL: "https://nginx.org", Title: "nginx"}},
		Commands:  []core.Command{{Command: "rm -rf /", Risk: core.RiskHigh, Reason: "destroys the root filesystem"}},
		Metrics:   core.TurnMetrics{Duration: 1500 * time.Millisecond},
	}))

	s := out.String()
	assert.Contains(t, s, "  > Research look it up")
	assert.Contains(t, s, "* web_search query=nginx")
	assert.Contains(t, s, "\nAnswer\n")
	assert.Contains(t, s, "[1] nginx https://nginx.org")
	assert.Contains(t, s, "$ rm -rf /  [high] destroys the root filesystem")
	assert.Contains(t, s, "0 agents, 0 tokens, 1.5s")
}
