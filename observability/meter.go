package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the dispatch instruments.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
	attemptTotal    metric.Int64Counter
	attemptDuration metric.Float64Histogram
	fallbackTotal   metric.Int64Counter
	cacheTotal      metric.Int64Counter
	errorTotal      metric.Int64Counter
}

// NewMetrics creates the dispatch instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.requestTotal, err = meter.Int64Counter("riskintel.request.total",
		metric.WithDescription("Logical requests by type, final provider and status"),
	); err != nil {
		return nil, fmt.Errorf("creating request.total counter: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("riskintel.request.duration",
		metric.WithDescription("End-to-end request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating request.duration histogram: %w", err)
	}
	if m.requestActive, err = meter.Int64UpDownCounter("riskintel.request.active",
		metric.WithDescription("Requests currently in flight"),
	); err != nil {
		return nil, fmt.Errorf("creating request.active gauge: %w", err)
	}
	if m.attemptTotal, err = meter.Int64Counter("riskintel.provider.attempt.total",
		metric.WithDescription("Provider attempts by provider and status"),
	); err != nil {
		return nil, fmt.Errorf("creating attempt.total counter: %w", err)
	}
	if m.attemptDuration, err = meter.Float64Histogram("riskintel.provider.attempt.duration",
		metric.WithDescription("Provider attempt duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating attempt.duration histogram: %w", err)
	}
	if m.fallbackTotal, err = meter.Int64Counter("riskintel.fallback.total",
		metric.WithDescription("Switches from a failed provider to the fallback"),
	); err != nil {
		return nil, fmt.Errorf("creating fallback.total counter: %w", err)
	}
	if m.cacheTotal, err = meter.Int64Counter("riskintel.cache.lookup.total",
		metric.WithDescription("Response cache lookups by result"),
	); err != nil {
		return nil, fmt.Errorf("creating cache.lookup.total counter: %w", err)
	}
	if m.errorTotal, err = meter.Int64Counter("riskintel.error.total",
		metric.WithDescription("Normalized errors by code and provider"),
	); err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}
	return m, nil
}

// NewNopMetrics returns instruments backed by the noop meter.
func NewNopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("nop"))
	return m
}

// RecordRequestStart increments the in-flight gauge.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements the in-flight gauge and records the request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, requestType, provider, status string, duration time.Duration) {
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", requestType),
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("type", requestType),
	))
}

// RecordAttempt records one provider attempt.
func (m *Metrics) RecordAttempt(ctx context.Context, provider, status string, duration time.Duration) {
	m.attemptTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
	m.attemptDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordFallback records a switch to the fallback provider.
func (m *Metrics) RecordFallback(ctx context.Context, from, to string) {
	m.fallbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordCache records a cache lookup.
func (m *Metrics) RecordCache(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordError records a normalized error.
func (m *Metrics) RecordError(ctx context.Context, code, provider string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("provider", provider),
	))
}
