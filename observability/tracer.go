package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kbukum/riskintel"

// Span names.
const (
	SpanRequest  = "riskintel.request"
	SpanProvider = "riskintel.provider"
)

// Attribute keys.
const (
	AttrRequestID    = "request.id"
	AttrRequestType  = "request.type"
	AttrProviderID   = "provider.id"
	AttrProviderName = "provider.name"
	AttrErrorCode    = "error.code"
	AttrDurationMs   = "duration_ms"
	AttrStatus       = "status"
)

// Tracer returns the riskintel tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan opens a span carrying attrs.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartProviderSpan opens "riskintel.provider.<id>" around one attempt.
func StartProviderSpan(ctx context.Context, providerID, providerName, requestID, requestType string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanProvider+"."+providerID,
		attribute.String(AttrProviderID, providerID),
		attribute.String(AttrProviderName, providerName),
		attribute.String(AttrRequestID, requestID),
		attribute.String(AttrRequestType, requestType),
	)
}

// FailSpan marks span as failed with a normalized error code. err, when
// non-nil, is recorded as a span event.
func FailSpan(span trace.Span, code string, err error) {
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.String(AttrErrorCode, code))
	span.SetStatus(codes.Error, code)
	if err != nil {
		span.RecordError(err)
	}
}
