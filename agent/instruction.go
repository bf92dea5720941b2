package agent

import (
	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/internal/util"
)

// PromptData is the template data available to instructions.
type PromptData struct {
	Query   string
	Label   string
	Depth   int
	Profile core.SystemProfile
	Data    map[string]any
	Prior   []string // Summaries of earlier stage outputs
}

func newPromptData(task core.AgentTask, in Input) PromptData {
	prior := make([]string, 0, len(in.Prior))
	for _, o := range in.Prior {
		prior = append(prior, o.Summary())
	}

	return PromptData{
		Query:   in.Query,
		Label:   task.Label,
		Depth:   task.Depth,
		Profile: in.Profile,
		Data:    in.Data,
		Prior:   prior,
	}
}

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(PromptData) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(PromptData) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(d PromptData) (string, error) { return f(d) }

// Instruction represents either a static instruction template or a dynamic provider.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static template.
// Template actions see PromptData.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(PromptData) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static template.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// IsZero reports whether neither text nor provider is set.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text, rendering the template or invoking
// the provider.
func (i Instruction) Resolve(d PromptData) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(d)
	}
	return util.RenderTemplate(i.text, d)
}
