package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "safedesk"

// StartTurnSpan starts the root span for one conversation turn.
func StartTurnSpan(ctx context.Context, traceID, sessionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "turn",
		trace.WithAttributes(
			attribute.String("turn.trace_id", traceID),
			attribute.String("turn.session_id", sessionID),
		),
	)
}

// StartStageSpan starts a span for one pipeline stage within a turn.
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "stage",
		trace.WithAttributes(
			attribute.String("stage.name", stage),
		),
	)
}

// StartGatewaySpan starts a span for an outbound model or search call.
func StartGatewaySpan(ctx context.Context, gateway, operation string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "gateway",
		trace.WithAttributes(
			attribute.String("gateway.name", gateway),
			attribute.String("gateway.operation", operation),
		),
	)
}
