package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentcouncil/core"
)

// CustomOptions configures a CustomAgent.
type CustomOptions struct {
	Instruction  Instruction
	Tools        []string // Allowed tool names; empty disables tools
	MaxToolCalls int
	Temperature  *float64
}

// CustomAgent runs a caller supplied instruction with a chosen tool subset.
type CustomAgent struct {
	*BaseAgent
	opts CustomOptions
}

// NewCustomAgent creates a custom agent for task.
func NewCustomAgent(task core.AgentTask, env *Env, optFns ...func(o *CustomOptions)) *CustomAgent {
	opts := CustomOptions{
		Instruction: NewInstructionFromText("You are a helpful assistant. Answer the user's request."),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &CustomAgent{BaseAgent: NewBaseAgent(task, env), opts: opts}
}

// Run implements Agent.
func (a *CustomAgent) Run(ctx context.Context, in Input) (Output, error) {
	_ = a.SetStatus(core.StatusThinking)

	instructions, err := a.opts.Instruction.Resolve(newPromptData(a.Task(), in))
	if err != nil {
		return nil, fmt.Errorf("custom instructions: %w", err)
	}

	messages := append(append([]core.Content(nil), in.History...), core.NewTextContent(core.RoleUser, in.Query))

	loop, err := a.CallWithTools(ctx, messages, a.opts.Tools, CallOptions{
		Instructions: instructions,
		MaxToolCalls: a.opts.MaxToolCalls,
		Temperature:  a.opts.Temperature,
	})
	if err != nil {
		return nil, err
	}

	return &CustomOutput{Text: loop.Text(), ToolCalls: loop.ToolCalls}, nil
}
