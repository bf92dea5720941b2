package orchestrator

import (
	"regexp"
	"strings"

	"github.com/hupe1980/agentcouncil/agent"
	"github.com/hupe1980/agentcouncil/core"
)

// Intent is the coarse kind of a user query.
type Intent string

const (
	IntentGreeting    Intent = "greeting"
	IntentFactual     Intent = "factual"
	IntentReasoning   Intent = "reasoning"
	IntentOperational Intent = "operational"
)

// Complexity grades a query by length.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Stage is one step of a pipeline.
type Stage struct {
	Type        core.AgentType
	Label       string
	Description string
	Data        map[string]any
}

// Classification decides which agents answer a query.
type Classification struct {
	Intent     Intent
	Complexity Complexity
	Pipeline   []Stage
}

// Classifier maps a query and the known system profile to a pipeline.
type Classifier func(query string, profile core.SystemProfile) Classification

var (
	greetingPattern    = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|howdy|yo|thanks|thank you|thx|good (morning|afternoon|evening)|how are you|bye|goodbye)\b`)
	operationalPattern = regexp.MustCompile(`(?i)\b(install|uninstall|configure|config|set ?up|run|fix|deploy|upgrade|update|remove|enable|disable|start|stop|restart|troubleshoot|debug|mount|compile|build|migrate)\b`)
	reasoningPattern   = regexp.MustCompile(`(?i)\b(why|explain|compare|comparison|prove|proof|analy[sz]e|derive|trade-?offs?|difference between|pros and cons|should i)\b`)
)

// Classify is the default Classifier:
//
//   - greetings and chit-chat go straight to the synthesizer
//   - operational requests run curious (only while the profile is empty),
//     research, planner, validator and synthesizer
//   - reasoning questions run a quick research pass and the synthesizer
//   - everything else is factual: research and synthesizer
func Classify(query string, profile core.SystemProfile) Classification {
	words := len(strings.Fields(query))

	c := Classification{Complexity: complexityOf(words)}

	switch {
	case greetingPattern.MatchString(query) && words <= 6:
		c.Intent = IntentGreeting
		c.Pipeline = []Stage{synthesizerStage(map[string]any{"mode": "greeting"})}
	case operationalPattern.MatchString(query):
		c.Intent = IntentOperational

		if profile.IsEmpty() {
			c.Pipeline = append(c.Pipeline, Stage{Type: core.AgentTypeCurious, Label: "System", Description: "Learn about the user's system"})
		}

		c.Pipeline = append(c.Pipeline,
			researchStage(agent.StrategyAdaptive),
			Stage{Type: core.AgentTypePlanner, Label: "Plan", Description: "Plan the steps and commands"},
			Stage{Type: core.AgentTypeValidator, Label: "Validate", Description: "Check the proposed commands"},
			synthesizerStage(nil),
		)
	case reasoningPattern.MatchString(query):
		c.Intent = IntentReasoning
		c.Pipeline = []Stage{researchStage(agent.StrategyQuick), synthesizerStage(nil)}
	default:
		c.Intent = IntentFactual

		strategy := agent.StrategyAdaptive
		if c.Complexity == ComplexitySimple {
			strategy = agent.StrategyQuick
		}

		c.Pipeline = []Stage{researchStage(strategy), synthesizerStage(nil)}
	}

	return c
}

func complexityOf(words int) Complexity {
	switch {
	case words <= 8:
		return ComplexitySimple
	case words <= 20:
		return ComplexityModerate
	default:
		return ComplexityComplex
	}
}

func researchStage(s agent.Strategy) Stage {
	return Stage{
		Type:        core.AgentTypeResearch,
		Label:       "Research",
		Description: "Gather and rank sources",
		Data:        map[string]any{"strategy": string(s)},
	}
}

func synthesizerStage(data map[string]any) Stage {
	return Stage{Type: core.AgentTypeSynthesizer, Label: "Answer", Description: "Write the final answer", Data: data}
}
