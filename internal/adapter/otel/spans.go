package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "stackpad"

// StartLeaveSpan starts a span for the locked leave operation.
func StartLeaveSpan(ctx context.Context, orgID, accountID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "org.leave",
		trace.WithAttributes(
			attribute.String("org.id", orgID),
			attribute.String("account.id", accountID),
		),
	)
}

// StartMembershipSpan starts a span for a membership mutation.
func StartMembershipSpan(ctx context.Context, op, orgID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "membership."+op,
		trace.WithAttributes(
			attribute.String("org.id", orgID),
		),
	)
}
