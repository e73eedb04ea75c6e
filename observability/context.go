package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation tracks one logical request across its span and metrics.
type Operation struct {
	RequestID   string
	RequestType string
	StartTime   time.Time
	Metrics     *Metrics

	span trace.Span
}

type operationKey struct{}

// StartOperation opens the request span and bumps the in-flight gauge.
// metrics may be nil.
func StartOperation(ctx context.Context, requestID, requestType string, metrics *Metrics) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, SpanRequest,
		attribute.String(AttrRequestID, requestID),
		attribute.String(AttrRequestType, requestType),
	)
	op := &Operation{
		RequestID:   requestID,
		RequestType: requestType,
		StartTime:   time.Now(),
		Metrics:     metrics,
		span:        span,
	}
	if metrics != nil {
		metrics.RecordRequestStart(ctx)
	}
	return context.WithValue(ctx, operationKey{}, op), op
}

// OperationFromContext returns the Operation stored by StartOperation, or nil.
func OperationFromContext(ctx context.Context) *Operation {
	if op, ok := ctx.Value(operationKey{}).(*Operation); ok {
		return op
	}
	return nil
}

// End closes the span and records the request outcome. errCode is empty on success.
func (op *Operation) End(ctx context.Context, provider, errCode string) {
	duration := time.Since(op.StartTime)
	status := "ok"
	if errCode != "" {
		status = "error"
		FailSpan(op.span, errCode, nil)
	}
	op.span.SetAttributes(
		attribute.String(AttrProviderName, provider),
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	op.span.End()

	if op.Metrics != nil {
		op.Metrics.RecordRequestEnd(ctx, op.RequestType, provider, status, duration)
		if errCode != "" {
			op.Metrics.RecordError(ctx, errCode, provider)
		}
	}
}

// Duration returns the elapsed time since the operation started.
func (op *Operation) Duration() time.Duration {
	return time.Since(op.StartTime)
}
