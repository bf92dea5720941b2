package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/model"
)

// CallOptions tunes one tool loop.
type CallOptions struct {
	// MaxToolCalls bounds the number of model requests; Env.MaxToolCalls
	// when zero.
	MaxToolCalls int
	Temperature  *float64
	MaxTokens    int
	Instructions string
	// Selection overrides the model choice; otherwise the selector decides
	// from the last user message and the allowed tools.
	Selection *model.ModelSelectionResult
	// OnChunk receives streamed text. Setting it enables streaming.
	OnChunk func(text string)
}

// ToolLoopResult is the outcome of CallWithTools.
type ToolLoopResult struct {
	Content    core.Content          // Last model content
	ToolCalls  []core.ToolCallResult // Every executed call, in request order
	Usage      core.TokenUsage
	Model      string // Model that produced the last content
	Iterations int    // Model requests made
	Exhausted  bool   // The budget ran out while the model still requested tools
}

// Text returns the text of the last content.
func (r *ToolLoopResult) Text() string { return r.Content.Text() }

// CallWithTools runs the bounded tool loop: call the model, execute the
// requested tools (validated by the registry), feed the results back and
// repeat until the model answers with plain content or MaxToolCalls model
// requests were made. In the latter case the last content is returned as is.
// Only tools named in allowed are offered and executed; an empty allowed list
// disables tools. Tool failures are fed back to the model, never returned.
func (b *BaseAgent) CallWithTools(ctx context.Context, messages []core.Content, allowed []string, opts CallOptions) (*ToolLoopResult, error) {
	env := b.env
	if env.Pool == nil {
		return nil, fmt.Errorf("%w: no model pool configured", core.ErrNoModelAvailable)
	}

	limit := opts.MaxToolCalls
	if limit <= 0 {
		limit = env.MaxToolCalls
	}

	budget := core.NewCallBudget(limit)

	var defs []model.ToolDefinition
	if len(allowed) > 0 {
		defs = env.Tools.Definitions(allowed...)
	}

	sel := b.selection(messages, allowed, opts.Selection)

	contents := append([]core.Content(nil), messages...)
	res := &ToolLoopResult{}

	for budget.Take() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		gen, err := env.Pool.Generate(ctx, sel, model.Request{
			Instructions: opts.Instructions,
			Contents:     contents,
			Tools:        defs,
			Stream:       opts.OnChunk != nil,
			Temperature:  opts.Temperature,
			MaxTokens:    opts.MaxTokens,
		}, opts.OnChunk)
		if err != nil {
			return res, err
		}

		res.Iterations++
		res.Model = gen.Model
		res.Content = gen.Content

		var usage core.TokenUsage
		if gen.Usage != nil {
			usage = *gen.Usage
		}

		res.Usage = res.Usage.Add(usage)
		b.RecordTokenUsage(gen.Model, usage)

		calls := gen.Content.FunctionCalls()
		if len(calls) == 0 {
			return res, nil
		}

		// stay on the model that answered instead of retrying failed ones
		sel.SelectedModel = gen.Model

		results := b.executeCalls(ctx, calls, allowed)
		res.ToolCalls = append(res.ToolCalls, results...)

		contents = append(contents, gen.Content, toolResponseContent(results))
	}

	res.Exhausted = true
	b.logger.Warn("agent.tool_loop.exhausted", "max_tool_calls", limit, "tool_calls", len(res.ToolCalls))

	return res, nil
}

func (b *BaseAgent) selection(messages []core.Content, allowed []string, override *model.ModelSelectionResult) model.ModelSelectionResult {
	if override != nil {
		return *override
	}

	query := ""
	tokens := 0

	for _, c := range messages {
		text := c.Text()
		tokens += len(text) / 4

		if c.Role == core.RoleUser {
			query = text
		}
	}

	sel := b.env.Selector.Select(model.SelectionContext{
		Query:             query,
		Tools:             allowed,
		ExpectedToolCalls: len(allowed),
		ContextTokens:     tokens,
	})

	b.logger.Debug("agent.model.selected", "model", sel.SelectedModel, "reason", sel.Reasoning)

	return sel
}

func toolResponseContent(results []core.ToolCallResult) core.Content {
	parts := make([]core.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
			ID:       r.ID,
			Name:     r.Name,
			Response: r.Result,
			Error:    r.Error,
		}})
	}

	return core.Content{Role: core.RoleTool, Parts: parts}
}
