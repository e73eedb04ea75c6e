package provider

import (
	"context"
	"time"

	apperrors "github.com/kbukum/riskintel/errors"
	"github.com/kbukum/riskintel/observability"
)

// WithMetrics records attempt count, duration and error codes per provider.
func WithMetrics(metrics *observability.Metrics) Middleware {
	return func(inner Provider) Provider {
		return &metricsProvider{Provider: inner, metrics: metrics}
	}
}

type metricsProvider struct {
	Provider
	metrics *observability.Metrics
}

func (m *metricsProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	resp, err := m.Provider.Complete(ctx, req)

	status := "ok"
	switch {
	case err != nil:
		status = "error"
		m.metrics.RecordError(ctx, string(apperrors.Normalize(err).Code), m.ID())
	case resp != nil && !resp.Success:
		status = "error"
		if resp.Error != nil {
			m.metrics.RecordError(ctx, string(resp.Error.Code), m.ID())
		}
	}
	m.metrics.RecordAttempt(ctx, m.ID(), status, time.Since(start))
	return resp, err
}
