package agent

import (
	"context"
	"encoding/json"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentcouncil/audit"
	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/tool"
)

// maxParallelTools bounds concurrent tool executions within one model turn.
const maxParallelTools = 4

// executeCalls runs the calls of one model response concurrently. Results
// keep the order of calls regardless of completion order.
func (b *BaseAgent) executeCalls(ctx context.Context, calls []core.FunctionCall, allowed []string) []core.ToolCallResult {
	results := make([]core.ToolCallResult, len(calls))

	if len(calls) == 1 {
		results[0] = b.executeCall(ctx, calls[0], allowed)
	} else {
		var g errgroup.Group
		g.SetLimit(maxParallelTools)

		for i, call := range calls {
			g.Go(func() error {
				results[i] = b.executeCall(ctx, call, allowed)
				return nil
			})
		}

		_ = g.Wait()
	}

	b.recordToolCalls(len(calls))

	return results
}

func (b *BaseAgent) executeCall(ctx context.Context, call core.FunctionCall, allowed []string) core.ToolCallResult {
	b.EmitToolUse(core.ToolPayload{Name: call.Name, Input: previewArgs(call.Arguments), Status: core.ToolStarted})

	res := b.runCall(ctx, call, allowed)

	payload := core.ToolPayload{Name: call.Name, Input: res.Input, Status: core.ToolCompleted, Output: res.Result}
	status := "ok"

	if res.Failed() {
		payload.Status = core.ToolFailed
		payload.Error = res.Error
		payload.Output = nil
		status = "error"
	}

	b.EmitToolUse(payload)
	b.audit(ctx, audit.ActionToolCall, status, call.Name)

	return res
}

func (b *BaseAgent) runCall(ctx context.Context, call core.FunctionCall, allowed []string) core.ToolCallResult {
	if !slices.Contains(allowed, call.Name) {
		return core.ToolCallResult{
			ID:    call.ID,
			Name:  call.Name,
			Input: previewArgs(call.Arguments),
			Error: tool.NewToolError(call.Name, "tool is not available to this agent", tool.CodeNotFound).Error(),
		}
	}

	if tool.IsSearch(call.Name) {
		if err := b.env.Admission.AllowSearch(ctx, b.env.Identity); err != nil {
			return core.ToolCallResult{
				ID:    call.ID,
				Name:  call.Name,
				Input: previewArgs(call.Arguments),
				Error: tool.NewToolError(call.Name, err.Error(), tool.CodeQuota).Error(),
			}
		}
	}

	return b.env.Tools.Execute(ctx, call)
}

// previewArgs decodes raw arguments for events; malformed input yields nil.
func previewArgs(raw string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil
	}
	return args
}
