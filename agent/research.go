package agent

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/model"
	"github.com/hupe1980/agentcouncil/tool"
)

// Strategy controls how many sources a research run keeps.
type Strategy string

const (
	StrategyQuick    Strategy = "quick"
	StrategyDeep     Strategy = "deep"
	StrategyAdaptive Strategy = "adaptive"
)

// ParseStrategy maps s to a Strategy, defaulting to adaptive.
func ParseStrategy(s string) Strategy {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyQuick:
		return StrategyQuick
	case StrategyDeep:
		return StrategyDeep
	default:
		return StrategyAdaptive
	}
}

// MaxResults is the number of citations kept by the strategy.
func (s Strategy) MaxResults() int {
	switch s {
	case StrategyQuick:
		return 5
	case StrategyDeep:
		return 15
	default:
		return 10
	}
}

const (
	// MaxSubResearch caps deepening passes per top-level research agent.
	MaxSubResearch = 1

	minDeepeningWords     = 5
	minDeepeningCitations = 3
)

// ResearchTools are the tools offered to the research agent.
var ResearchTools = []string{tool.NameWebSearch, tool.NameSearchWikipedia, tool.NameCalculate}

// ResearchOptions configures a ResearchAgent.
type ResearchOptions struct {
	Instruction    Instruction
	MaxToolCalls   int
	TrustedDomains []DomainWeight
	Now            func() time.Time
}

// ResearchAgent gathers and ranks sources for a query. A top-level instance
// may spawn one deeper sub-research pass on a narrower sub-topic.
type ResearchAgent struct {
	*BaseAgent
	opts     ResearchOptions
	deepened int
}

// NewResearchAgent creates a research agent for task.
func NewResearchAgent(task core.AgentTask, env *Env, optFns ...func(o *ResearchOptions)) *ResearchAgent {
	opts := ResearchOptions{
		Instruction:    NewInstructionFromText(researchPrompt),
		TrustedDomains: DefaultTrustedDomains,
		Now:            func() time.Time { return time.Now().UTC() },
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &ResearchAgent{BaseAgent: NewBaseAgent(task, env), opts: opts}
}

// Run implements Agent.
func (a *ResearchAgent) Run(ctx context.Context, in Input) (Output, error) {
	strategy := ParseStrategy(in.String("strategy"))
	limit := strategy.MaxResults()

	_ = a.SetStatus(core.StatusSearching)
	a.EmitThinking(fmt.Sprintf("Researching (%s, up to %d sources)", strategy, limit))

	data := map[string]any{}
	maps.Copy(data, in.Data)
	data["strategy"] = string(strategy)
	data["max_results"] = limit

	pd := newPromptData(a.Task(), in)
	pd.Data = data

	instructions, err := a.opts.Instruction.Resolve(pd)
	if err != nil {
		return nil, fmt.Errorf("research instructions: %w", err)
	}

	messages := append(append([]core.Content(nil), in.History...), core.NewTextContent(core.RoleUser, in.Query))

	loop, err := a.CallWithTools(ctx, messages, ResearchTools, CallOptions{
		Instructions: instructions,
		MaxToolCalls: a.opts.MaxToolCalls,
	})
	if err != nil {
		return nil, err
	}

	out := &ResearchOutput{
		Text:      loop.Text(),
		Citations: core.RankCitations(ExtractCitations(loop.ToolCalls, a.opts.TrustedDomains, a.opts.Now()), limit),
		Strategy:  strategy,
	}

	if a.shouldDeepen(in.Query, len(out.Citations)) {
		a.deepen(ctx, in, out)
	}

	return out, nil
}

// shouldDeepen gates the sub-research pass: top level only, a specific
// enough query, enough sources to build on and the per-instance cap.
func (a *ResearchAgent) shouldDeepen(query string, citations int) bool {
	return a.Task().IsTopLevel() &&
		len(strings.Fields(query)) >= minDeepeningWords &&
		citations >= minDeepeningCitations &&
		a.deepened < MaxSubResearch
}

// deepen spawns one deep sub-research agent and merges its citations by URL.
// Failures are logged and ignored.
func (a *ResearchAgent) deepen(ctx context.Context, in Input, out *ResearchOutput) {
	a.deepened++

	topic, err := a.identifySubTopic(ctx, in.Query, out.Citations)
	if err != nil {
		a.Logger().Warn("research.subtopic.failed", "error", err.Error())
		return
	}

	if topic == "" {
		a.Logger().Debug("research.subtopic.none")
		return
	}

	a.EmitThinking("Digging deeper into " + topic)

	sub, err := a.SpawnSubAgent(ctx, core.AgentTypeResearch, topic, "Deep dive: "+topic, Input{
		Query:   topic,
		Data:    map[string]any{"strategy": string(StrategyDeep)},
		Profile: in.Profile,
	})
	if err != nil {
		a.Logger().Warn("research.subagent.failed", "topic", topic, "error", err.Error())
		return
	}

	ro, ok := sub.(*ResearchOutput)
	if !ok {
		return
	}

	out.Citations = core.RankCitations(core.MergeCitations(out.Citations, ro.Citations), StrategyDeep.MaxResults())
	out.SubTopics = append(out.SubTopics, topic)

	if text := strings.TrimSpace(ro.Text); text != "" {
		out.Text = strings.TrimSpace(out.Text) + "\n\n" + topic + ": " + text
	}
}

// identifySubTopic asks the model for one narrower sub-topic. An answer of
// NONE yields "".
func (a *ResearchAgent) identifySubTopic(ctx context.Context, query string, cits []core.Citation) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Question: %s\nSources found:\n", query)

	for _, c := range cits {
		fmt.Fprintf(&b, "- %s (%s)\n", c.Title, c.URL)
	}

	sel := a.Env().Selector.Select(model.SelectionContext{Query: query, LatencySensitive: true})

	loop, err := a.CallWithTools(ctx, []core.Content{core.NewTextContent(core.RoleUser, b.String())}, nil, CallOptions{
		Instructions: subTopicPrompt,
		MaxToolCalls: 1,
		MaxTokens:    32,
		Temperature:  model.Float(0),
		Selection:    &sel,
	})
	if err != nil {
		return "", err
	}

	return parseSubTopic(loop.Text()), nil
}

func parseSubTopic(text string) string {
	topic := strings.TrimSpace(text)
	if i := strings.IndexByte(topic, '\n'); i >= 0 {
		topic = topic[:i]
	}

	topic = strings.Trim(strings.TrimSpace(topic), "\"'`.")

	if topic == "" || strings.HasPrefix(strings.ToUpper(topic), "NONE") {
		return ""
	}

	return topic
}
