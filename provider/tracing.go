package provider

import (
	"context"

	apperrors "github.com/kbukum/riskintel/errors"
	"github.com/kbukum/riskintel/observability"
)

// WithTracing opens a span named "riskintel.provider.{id}" around each Complete.
func WithTracing() Middleware {
	return func(inner Provider) Provider {
		return &tracingProvider{Provider: inner}
	}
}

type tracingProvider struct {
	Provider
}

func (t *tracingProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := observability.StartProviderSpan(ctx, t.ID(), t.Name(), req.ID, string(req.Type))
	defer span.End()

	resp, err := t.Provider.Complete(ctx, req)
	switch {
	case err != nil:
		observability.FailSpan(span, string(apperrors.Normalize(err).Code), err)
	case resp != nil && !resp.Success && resp.Error != nil:
		observability.FailSpan(span, string(resp.Error.Code), nil)
	}
	return resp, err
}
