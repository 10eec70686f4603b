package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

var tracer = otel.Tracer("github.com/nextlevelbuilder/llmgw/internal/pipeline")

// startAttemptSpan opens one span per provider call: a span per
// external call rather than one span for the whole, possibly-retried,
// request.
func startAttemptSpan(ctx context.Context, req *ir.Request, attempt int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "pipeline.provider_invoke", trace.WithAttributes(
		attribute.String("request_id", req.ID),
		attribute.Int("attempt", attempt),
		attribute.String("model", req.Model),
	))
}
