package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartEnd_NoopProvider(t *testing.T) {
	ctx, span := Start(context.Background(), SpanToolExecute, attribute.String(AttrToolName, "calculate"))

	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
	assert.NotPanics(t, func() { End(span, errors.New("boom")) })
	assert.NotPanics(t, func() { End(nil, nil) })
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_ExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	exp := tracetest.NewInMemoryExporter()

	shutdown, err := Setup(context.Background(), Config{Enabled: true, ServiceName: "test", Exporter: exp})
	require.NoError(t, err)

	_, span := Start(context.Background(), SpanAgentRun, attribute.String(AttrAgentType, "research"))
	End(span, errors.New("boom"))

	_, span = Start(context.Background(), SpanModelCall)
	End(span, nil)

	provider, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	require.True(t, ok)
	require.NoError(t, provider.ForceFlush(context.Background()))

	spans := exp.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, SpanAgentRun, spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, codes.Ok, spans[1].Status.Code)

	require.NoError(t, shutdown(context.Background()))
}
