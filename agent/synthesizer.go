package agent

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/hupe1980/agentcouncil/core"
)

// ErrEmptyAnswer is returned when the model produced no answer text.
var ErrEmptyAnswer = errors.New("synthesizer produced an empty answer")

// SynthesizerAgent writes the final answer from earlier stage outputs and
// streams it as message chunks.
type SynthesizerAgent struct {
	*BaseAgent
	instruction Instruction
}

// NewSynthesizerAgent creates a synthesizer for task.
func NewSynthesizerAgent(task core.AgentTask, env *Env) *SynthesizerAgent {
	return &SynthesizerAgent{
		BaseAgent:   NewBaseAgent(task, env),
		instruction: NewInstructionFromText(synthesizerPrompt),
	}
}

// Run implements Agent. Data["mode"] == "greeting" switches to a short
// conversational reply.
func (a *SynthesizerAgent) Run(ctx context.Context, in Input) (Output, error) {
	_ = a.SetStatus(core.StatusSynthesizing)

	instruction := a.instruction
	if in.String("mode") == "greeting" {
		instruction = NewInstructionFromText(greetingPrompt)
	}

	data := map[string]any{}
	maps.Copy(data, in.Data)

	if research, ok := FindOutput[*ResearchOutput](in.Prior); ok && len(research.Citations) > 0 {
		data["sources"] = formatSources(research.Citations)
	}

	if cmds := finalCommands(in.Prior); len(cmds) > 0 {
		data["commands"] = formatCommands(cmds)
	}

	pd := newPromptData(a.Task(), in)
	pd.Data = data

	instructions, err := instruction.Resolve(pd)
	if err != nil {
		return nil, fmt.Errorf("synthesizer instructions: %w", err)
	}

	messages := append(append([]core.Content(nil), in.History...), core.NewTextContent(core.RoleUser, in.Query))

	streamed := false

	loop, err := a.CallWithTools(ctx, messages, nil, CallOptions{
		Instructions: instructions,
		MaxToolCalls: 1,
		OnChunk: func(text string) {
			streamed = true
			a.EmitChunk(text)
		},
	})
	if err != nil {
		return nil, err
	}

	answer := strings.TrimSpace(loop.Text())
	if answer == "" {
		return nil, ErrEmptyAnswer
	}

	// providers without streaming deliver the answer in one piece
	if !streamed {
		a.EmitChunk(answer)
	}

	return &SynthesisOutput{Answer: answer}, nil
}

// finalCommands prefers validated commands over the raw plan and drops
// rejected ones.
func finalCommands(prior []Output) []core.Command {
	if v, ok := FindOutput[*ValidationOutput](prior); ok && len(v.Commands) > 0 {
		out := make([]core.Command, 0, len(v.Commands))
		for _, c := range v.Commands {
			if c.Validated {
				out = append(out, c)
			}
		}

		return out
	}

	if p, ok := FindOutput[*PlanOutput](prior); ok {
		return p.Commands
	}

	return nil
}

func formatSources(cits []core.Citation) string {
	var b strings.Builder
	for i, c := range cits {
		fmt.Fprintf(&b, "[%d] %s - %s\n", i+1, c.Title, c.URL)
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatCommands(cmds []core.Command) string {
	var b strings.Builder
	for _, c := range cmds {
		fmt.Fprintf(&b, "- `%s`", c.Command)

		if c.Description != "" {
			fmt.Fprintf(&b, " (%s)", c.Description)
		}

		if c.Risk == core.RiskHigh {
			b.WriteString(" [high risk]")
		}

		b.WriteByte('\n')
	}

	return strings.TrimRight(b.String(), "\n")
}
