package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentcouncil/core"
)

// Agent is one short-lived, narrowly scoped execution unit. Concrete agents
// embed *BaseAgent, which provides Task and Base.
type Agent interface {
	Task() core.AgentTask
	Base() *BaseAgent
	Run(ctx context.Context, in Input) (Output, error)
}

// Input is what an agent works on.
type Input struct {
	Query   string
	Data    map[string]any     // Stage specific extras, e.g. "strategy"
	Prior   []Output           // Outputs of earlier pipeline stages
	Profile core.SystemProfile // Known facts about the user's system
	History []core.Content     // Prior conversation turns
}

// String returns a value of Data as string.
func (in Input) String(key string) string {
	if in.Data == nil {
		return ""
	}

	switch v := in.Data[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

// Output is the closed set of agent results.
type Output interface {
	Summary() string
	isOutput()
}

// ResearchOutput is produced by the research agent.
type ResearchOutput struct {
	Text      string          `json:"text"`
	Citations []core.Citation `json:"citations"`
	SubTopics []string        `json:"sub_topics,omitempty"`
	Strategy  Strategy        `json:"strategy"`
}

// PlanOutput is produced by the planner.
type PlanOutput struct {
	Text     string         `json:"text"`
	Steps    []string       `json:"steps"`
	Commands []core.Command `json:"commands,omitempty"`
}

// ValidationOutput is produced by the validator.
type ValidationOutput struct {
	Text     string         `json:"text"`
	Commands []core.Command `json:"commands"`
	Rejected int            `json:"rejected"`
}

// SynthesisOutput is the final streamed answer.
type SynthesisOutput struct {
	Answer string `json:"answer"`
}

// CuriousOutput carries what was learned about the user's system.
type CuriousOutput struct {
	Profile core.SystemProfile `json:"profile"`
	Answer  string             `json:"answer,omitempty"`
	Skipped bool               `json:"skipped,omitempty"` // No answer arrived
}

// CustomOutput is produced by a custom agent.
type CustomOutput struct {
	Text      string                `json:"text"`
	ToolCalls []core.ToolCallResult `json:"tool_calls,omitempty"`
}

func (*ResearchOutput) isOutput()   {}
func (*PlanOutput) isOutput()       {}
func (*ValidationOutput) isOutput() {}
func (*SynthesisOutput) isOutput()  {}
func (*CuriousOutput) isOutput()    {}
func (*CustomOutput) isOutput()     {}

// Summary implements Output.
func (o *ResearchOutput) Summary() string {
	return fmt.Sprintf("%d sources: %s", len(o.Citations), firstLine(o.Text))
}

// Summary implements Output.
func (o *PlanOutput) Summary() string {
	return fmt.Sprintf("%d steps, %d commands", len(o.Steps), len(o.Commands))
}

// Summary implements Output.
func (o *ValidationOutput) Summary() string {
	return fmt.Sprintf("%d commands checked, %d rejected", len(o.Commands), o.Rejected)
}

// Summary implements Output.
func (o *SynthesisOutput) Summary() string { return firstLine(o.Answer) }

// Summary implements Output.
func (o *CuriousOutput) Summary() string {
	if o.Skipped {
		return "system profile unknown"
	}

	parts := make([]string, 0, 3)
	for _, v := range []string{o.Profile.OS, o.Profile.Distro, o.Profile.PackageManager} {
		if v != "" {
			parts = append(parts, v)
		}
	}

	return "system: " + strings.Join(parts, " ")
}

// Summary implements Output.
func (o *CustomOutput) Summary() string { return firstLine(o.Text) }

// FindOutput returns the last output of type T in outs.
func FindOutput[T Output](outs []Output) (T, bool) {
	var zero T

	for i := len(outs) - 1; i >= 0; i-- {
		if o, ok := outs[i].(T); ok {
			return o, true
		}
	}

	return zero, false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}

	const max = 160
	if r := []rune(s); len(r) > max {
		s = string(r[:max]) + "…"
	}

	return s
}
