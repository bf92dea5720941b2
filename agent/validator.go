package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/logging"
	"github.com/hupe1980/agentcouncil/tool"
)

// ValidatorTools are the tools offered to the validator.
var ValidatorTools = []string{tool.NameValidateCommand}

// ValidatorAgent checks proposed commands for syntax, platform fit and risk.
type ValidatorAgent struct {
	*BaseAgent
	instruction Instruction
}

// NewValidatorAgent creates a validator for task.
func NewValidatorAgent(task core.AgentTask, env *Env) *ValidatorAgent {
	return &ValidatorAgent{
		BaseAgent:   NewBaseAgent(task, env),
		instruction: NewInstructionFromText(validatorPrompt),
	}
}

type verdict struct {
	Command string `json:"command"`
	Valid   bool   `json:"valid"`
	Risk    string `json:"risk"`
	Reason  string `json:"reason"`
}

// Run implements Agent. Commands come from Data["commands"] or the latest
// plan in Prior; without commands it returns without a model call.
func (a *ValidatorAgent) Run(ctx context.Context, in Input) (Output, error) {
	cmds := commandsOf(in)
	if len(cmds) == 0 {
		return &ValidationOutput{Text: "no commands to validate"}, nil
	}

	_ = a.SetStatus(core.StatusValidating)
	a.EmitThinking(fmt.Sprintf("Validating %d commands", len(cmds)))

	instructions, err := a.instruction.Resolve(newPromptData(a.Task(), in))
	if err != nil {
		return nil, fmt.Errorf("validator instructions: %w", err)
	}

	var b strings.Builder
	b.WriteString("Commands to validate:\n")

	for i, c := range cmds {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Command)
	}

	if target := strings.TrimSpace(in.Profile.Distro + " " + in.Profile.OS); target != "" {
		fmt.Fprintf(&b, "Target: %s\n", target)
	}

	loop, err := a.CallWithTools(ctx, []core.Content{core.NewTextContent(core.RoleUser, b.String())}, ValidatorTools, CallOptions{
		Instructions: instructions,
	})
	if err != nil {
		return nil, err
	}

	verdicts := collectVerdicts(loop, a.Logger())

	out := &ValidationOutput{Text: strings.TrimSpace(loop.Text()), Commands: make([]core.Command, 0, len(cmds))}

	for _, c := range cmds {
		v, ok := verdicts[c.Command]
		if !ok {
			c.Validated = false
			c.Reason = "not checked"
			out.Commands = append(out.Commands, c)

			continue
		}

		c.Validated = v.Valid
		if v.Risk != "" {
			c.Risk = parseRisk(v.Risk)
		}

		if !v.Valid {
			c.Reason = v.Reason
			if c.Reason == "" {
				c.Reason = "rejected"
			}

			out.Rejected++
		}

		out.Commands = append(out.Commands, c)
	}

	return out, nil
}

// collectVerdicts merges the model's JSON verdicts with validate_command
// results; tool verdicts win.
func collectVerdicts(loop *ToolLoopResult, log logging.Logger) map[string]verdict {
	out := make(map[string]verdict)

	parsed, err := decodeJSON[struct {
		Commands []verdict `json:"commands"`
	}](loop.Text())
	if err != nil {
		log.Debug("validator.parse.failed", "error", err.Error())
	}

	for _, v := range parsed.Commands {
		out[strings.TrimSpace(v.Command)] = v
	}

	for _, r := range loop.ToolCalls {
		if r.Name != tool.NameValidateCommand || r.Failed() {
			continue
		}

		check, ok := decodeResult[tool.CommandCheck](r.Result)
		if !ok || check.Command == "" {
			continue
		}

		v := verdict{Command: check.Command, Valid: check.Valid, Risk: check.Risk, Reason: strings.Join(check.Issues, "; ")}
		if prev, ok := out[check.Command]; ok && v.Reason == "" {
			v.Reason = prev.Reason
		}

		out[check.Command] = v
	}

	return out
}

func commandsOf(in Input) []core.Command {
	if in.Data != nil {
		if cmds, ok := in.Data["commands"].([]core.Command); ok {
			return cmds
		}
	}

	if plan, ok := FindOutput[*PlanOutput](in.Prior); ok {
		return plan.Commands
	}

	return nil
}
