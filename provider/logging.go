package provider

import (
	"context"
	"time"

	apperrors "github.com/kbukum/riskintel/errors"
	"github.com/kbukum/riskintel/logger"
)

// WithLogging logs every Complete call with provider, request type,
// duration and the normalized error code on failure.
func WithLogging(log *logger.Logger) Middleware {
	return func(inner Provider) Provider {
		return &loggingProvider{Provider: inner, log: log}
	}
}

type loggingProvider struct {
	Provider
	log *logger.Logger
}

func (l *loggingProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	resp, err := l.Provider.Complete(ctx, req)

	fields := map[string]interface{}{
		logger.FieldProvider:    l.ID(),
		logger.FieldRequestID:   req.ID,
		logger.FieldRequestType: string(req.Type),
		logger.FieldDuration:    time.Since(start).Milliseconds(),
	}

	failure := err
	if failure == nil && resp != nil && !resp.Success && resp.Error != nil {
		failure = resp.Error
	}
	if failure != nil {
		appErr := apperrors.Normalize(failure)
		fields[logger.FieldCode] = string(appErr.Code)
		fields[logger.FieldError] = appErr.Message
		l.log.Warn("provider complete failed", fields)
	} else {
		l.log.Debug("provider complete ok", fields)
	}
	return resp, err
}
