package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/logging"
	"github.com/hupe1980/agentcouncil/tool"
)

// PlannerTools are the tools offered to the planner.
var PlannerTools = []string{tool.NameLookupPackage, tool.NameLookupDocs}

// PlannerAgent turns an operational request into steps and commands.
type PlannerAgent struct {
	*BaseAgent
	instruction Instruction
}

// NewPlannerAgent creates a planner for task.
func NewPlannerAgent(task core.AgentTask, env *Env) *PlannerAgent {
	return &PlannerAgent{
		BaseAgent:   NewBaseAgent(task, env),
		instruction: NewInstructionFromText(plannerPrompt),
	}
}

type planJSON struct {
	Steps    []string `json:"steps"`
	Commands []struct {
		Command     string `json:"command"`
		Description string `json:"description"`
		Risk        string `json:"risk"`
	} `json:"commands"`
}

// Run implements Agent.
func (a *PlannerAgent) Run(ctx context.Context, in Input) (Output, error) {
	_ = a.SetStatus(core.StatusPlanning)
	a.EmitThinking("Planning the steps")

	instructions, err := a.instruction.Resolve(newPromptData(a.Task(), in))
	if err != nil {
		return nil, fmt.Errorf("planner instructions: %w", err)
	}

	messages := append(append([]core.Content(nil), in.History...), core.NewTextContent(core.RoleUser, in.Query))

	loop, err := a.CallWithTools(ctx, messages, PlannerTools, CallOptions{Instructions: instructions})
	if err != nil {
		return nil, err
	}

	return parsePlan(loop.Text(), a.Logger()), nil
}

// parsePlan decodes the planner's JSON reply. Unparseable text becomes a
// single step so the turn can still be answered.
func parsePlan(text string, log logging.Logger) *PlanOutput {
	out := &PlanOutput{Text: strings.TrimSpace(text)}

	plan, err := decodeJSON[planJSON](text)
	if err != nil {
		log.Debug("planner.parse.failed", "error", err.Error())

		if out.Text != "" {
			out.Steps = []string{out.Text}
		}

		return out
	}

	for _, s := range plan.Steps {
		if s = strings.TrimSpace(s); s != "" {
			out.Steps = append(out.Steps, s)
		}
	}

	var cmds []core.Command
	for _, c := range plan.Commands {
		if strings.TrimSpace(c.Command) == "" {
			continue
		}

		cmds = append(cmds, core.Command{
			Command:     strings.TrimSpace(c.Command),
			Description: c.Description,
			Risk:        parseRisk(c.Risk),
		})
	}

	out.Commands = core.MergeCommands(nil, cmds)

	return out
}
