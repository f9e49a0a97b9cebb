// Tracing instrumentation for the run loop.
package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// runSpanHandle is the span covering a whole run; ending it twice is safe.
type runSpanHandle = trace.Span

func tracer() trace.Tracer {
	return otel.Tracer("switchboard/engine")
}

// startRunSpan starts the span covering one run of a network.
func startRunSpan(ctx context.Context, network, runID string) (context.Context, runSpanHandle) {
	ctx, span := tracer().Start(ctx, "run")
	span.SetAttributes(
		attribute.String("run.network", network),
		attribute.String("run.id", runID),
	)
	return ctx, span
}

// endRunSpan ends the run span with the terminal state.
func endRunSpan(span runSpanHandle, state string, err error) {
	span.SetAttributes(attribute.String("run.state", state))
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// startToolSpan starts a span for one tool execution.
func startToolSpan(ctx context.Context, call ToolCall) (context.Context, trace.Span) {
	ctx, span := tracer().Start(ctx, "tool."+call.ToolKey)
	span.SetAttributes(
		attribute.String("tool.key", call.ToolKey),
		attribute.String("tool.execution_id", call.ExecutionID),
		attribute.String("tool.agent", call.Agent),
	)
	return ctx, span
}

// endToolSpan ends the tool span, recording a failed invocation.
func endToolSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
