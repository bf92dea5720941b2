package testutil

import (
	"fmt"
	"time"

	"github.com/hupe1980/agentcouncil/core"
)

// Step is one scripted model turn.
type Step struct {
	Text   string
	Calls  []core.FunctionCall
	Chunks []string // Streamed partial texts, emitted before the final response
	Usage  *core.TokenUsage
	Err    error
	Delay  time.Duration // Wait before answering; cut short by the request context
}

// StepBuilder provides a fluent helper for constructing scripted model turns.
// Example:
//
//	step := NewStep().Call("web_search", `{"query":"nginx"}`).Usage(10, 5).Build()
//
// Chain only the parts you need.
type StepBuilder struct {
	step  Step
	calls int
}

// NewStep creates an empty step builder.
func NewStep() *StepBuilder { return &StepBuilder{} }

// Text sets the final assistant text (chainable).
func (b *StepBuilder) Text(t string) *StepBuilder { b.step.Text = t; return b }

// Call appends a function call with an auto-generated id (chainable).
func (b *StepBuilder) Call(name, args string) *StepBuilder {
	b.calls++
	b.step.Calls = append(b.step.Calls, core.FunctionCall{
		ID:        fmt.Sprintf("call-%s-%d", name, b.calls),
		Name:      name,
		Arguments: args,
	})
	return b
}

// Chunks sets the streamed partial texts (chainable). When no final text is
// set the concatenation of the chunks becomes the final text.
func (b *StepBuilder) Chunks(chunks ...string) *StepBuilder {
	b.step.Chunks = append(b.step.Chunks, chunks...)
	return b
}

// Usage attaches token usage to the final response (chainable).
func (b *StepBuilder) Usage(prompt, completion int) *StepBuilder {
	b.step.Usage = &core.TokenUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion}
	return b
}

// Delay holds the response back for d (chainable).
func (b *StepBuilder) Delay(d time.Duration) *StepBuilder { b.step.Delay = d; return b }

// Err makes the step fail with err (chainable).
func (b *StepBuilder) Err(err error) *StepBuilder { b.step.Err = err; return b }

// Build returns the step.
func (b *StepBuilder) Build() Step { return b.step }

// TextStep is shorthand for a plain text answer.
func TextStep(text string) Step { return NewStep().Text(text).Build() }

// ErrStep is shorthand for a failing turn.
func ErrStep(err error) Step { return NewStep().Err(err).Build() }
