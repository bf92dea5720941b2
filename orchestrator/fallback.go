package orchestrator

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentcouncil/agent"
	"github.com/hupe1980/agentcouncil/core"
)

// fallbackOutput stands in for a stage that failed so later stages and the
// final message still have something to work with.
func fallbackOutput(stage Stage, prior []agent.Output, err error) agent.Output {
	note := fmt.Sprintf("%s unavailable: %v", stage.Label, err)

	switch stage.Type {
	case core.AgentTypeResearch:
		return &agent.ResearchOutput{Text: note}
	case core.AgentTypePlanner:
		return &agent.PlanOutput{Text: note}
	case core.AgentTypeValidator:
		plan, _ := agent.FindOutput[*agent.PlanOutput](prior)
		if plan == nil {
			return &agent.ValidationOutput{Text: note}
		}

		cmds := make([]core.Command, 0, len(plan.Commands))
		for _, c := range plan.Commands {
			c.Validated = false
			c.Reason = "validation unavailable"
			cmds = append(cmds, c)
		}

		return &agent.ValidationOutput{Text: note, Commands: cmds}
	case core.AgentTypeCurious:
		return &agent.CuriousOutput{Skipped: true}
	case core.AgentTypeSynthesizer:
		return &agent.SynthesisOutput{Answer: fallbackAnswer(prior)}
	default:
		return &agent.CustomOutput{Text: note}
	}
}

// fallbackAnswer summarises what earlier stages found when no answer could
// be written.
func fallbackAnswer(prior []agent.Output) string {
	var b strings.Builder

	b.WriteString("I could not finish a complete answer.")

	if research, ok := agent.FindOutput[*agent.ResearchOutput](prior); ok && len(research.Citations) > 0 {
		b.WriteString(" These sources may help:")

		for _, c := range research.Citations {
			fmt.Fprintf(&b, "\n- %s (%s)", c.Title, c.URL)
		}
	}

	return b.String()
}
