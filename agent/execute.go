package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hupe1980/agentcouncil/audit"
	"github.com/hupe1980/agentcouncil/core"
	"github.com/hupe1980/agentcouncil/internal/tracing"
)

// ErrNoOutput is returned when an agent finished without error and without
// output.
var ErrNoOutput = errors.New("agent returned no output")

// Execute runs a under the shared lifecycle:
//
//  1. breaker admission; a rejection emits an error event with code
//     circuit_open and returns a *core.CircuitOpenError without any model or
//     tool call
//  2. spawn event, run metrics and a tracing span
//  3. Run with panic recovery
//  4. breaker outcome, result or error event, terminal status
//  5. audit record and Prometheus observation
//
// A cancelled ctx releases the breaker admission without counting a failure.
func Execute(ctx context.Context, a Agent, in Input) (out Output, err error) {
	b := a.Base()
	env := b.env
	task := a.Task()
	br := b.breaker()

	if err := br.Allow(); err != nil {
		b.logger.Warn("agent.run.rejected", "error", err.Error())
		env.Emit(core.NewErrorEvent(task.Info(), core.ErrorCodeCircuitOpen, err.Error()))
		env.Metrics.IncAgentRejected(task.Type.String())
		b.audit(ctx, audit.ActionAgentRejected, "circuit_open", err.Error())

		return nil, err
	}

	env.Emit(core.NewSpawnEvent(task))
	b.StartMetrics()

	ctx, span := tracing.Start(ctx, tracing.SpanAgentRun,
		attribute.String(tracing.AttrAgentID, task.ID),
		attribute.String(tracing.AttrAgentType, task.Type.String()),
		attribute.String(tracing.AttrParentID, task.ParentID),
		attribute.Int(tracing.AttrDepth, task.Depth),
	)

	b.logger.Info("agent.run.start", "label", task.Label)

	_ = b.SetStatus(core.StatusThinking)

	out, err = runRecovered(ctx, a, in)
	if err == nil && out == nil {
		err = ErrNoOutput
	}

	switch {
	case err == nil:
		br.RecordSuccess()
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		br.Release()
	default:
		br.RecordFailure()
	}

	if err != nil {
		b.EmitError(core.ErrorCodeAgent, err.Error())
		_ = b.SetStatus(core.StatusError)
	} else {
		b.EmitResult(out.Summary())
		_ = b.SetStatus(core.StatusDone)
	}

	rm := b.EndMetrics(err != nil)

	tracing.End(span, err)
	env.Metrics.ObserveAgentRun(task.Type.String(), rm.Duration, err)

	if env.OnRunEnd != nil {
		env.OnRunEnd(rm)
	}

	detail := ""
	if err != nil {
		detail = err.Error()
		b.logger.Warn("agent.run.failed", "duration_ms", rm.Duration.Milliseconds(), "error", detail)
	} else {
		detail = out.Summary()
		b.logger.Info("agent.run.done",
			"duration_ms", rm.Duration.Milliseconds(),
			"model_calls", rm.ModelCalls,
			"tool_calls", rm.ToolCalls,
			"tokens", rm.Tokens.TotalTokens,
		)
	}

	b.audit(ctx, audit.ActionAgentRun, outcome(err), detail)

	if err != nil {
		return nil, err
	}

	return out, nil
}

func runRecovered(ctx context.Context, a Agent, in Input) (out Output, err error) {
	defer func() {
		if p := recover(); p != nil {
			a.Base().logger.Error("agent.run.panic", "panic", p, "stack", string(debug.Stack()))
			out, err = nil, fmt.Errorf("agent panic: %v", p)
		}
	}()

	return a.Run(ctx, in)
}
