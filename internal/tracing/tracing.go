// Package tracing wraps OpenTelemetry span handling for agent runs, model
// calls and tool executions. Without a configured provider the global no-op
// tracer is used.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const scope = "agentcouncil"

const (
	SpanAgentRun     = "agentcouncil.agent.run"
	SpanModelCall    = "agentcouncil.model.generate"
	SpanToolExecute  = "agentcouncil.tool.execute"
	SpanOrchestrator = "agentcouncil.orchestrator.turn"
)

const (
	AttrAgentID   = "agentcouncil.agent_id"
	AttrAgentType = "agentcouncil.agent_type"
	AttrParentID  = "agentcouncil.parent_agent_id"
	AttrDepth     = "agentcouncil.depth"
	AttrModel     = "agentcouncil.model"
	AttrToolName  = "agentcouncil.tool_name"
	AttrChatID    = "agentcouncil.chat_id"
	AttrIntent    = "agentcouncil.intent"
	AttrStatus    = "agentcouncil.status"
)

// Start opens a span named name under the package scope.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(scope).Start(ctx, name, trace.WithAttributes(attrs...))
}

// End marks the span with the outcome of err and ends it.
func End(span trace.Span, err error) {
	if span == nil {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrStatus, "error"))
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(attribute.String(AttrStatus, "success"))
	}

	span.End()
}
