package errors

import (
	"context"
	stderrors "errors"
	"net"
	"strings"
)

// messageHints classifies plain errors whose only signal is their text.
// Order matters: the first matching hint wins.
var messageHints = []struct {
	code    ErrorCode
	needles []string
}{
	{ErrCodeAuth, []string{"unauthorized", "status 401", "status code: 401", "invalid api key", "missing api key", "forbidden"}},
	{ErrCodeRateLimited, []string{"rate limit", "too many requests", "status 429", "status code: 429"}},
	{ErrCodeTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{ErrCodeServiceError, []string{"connection refused", "connection reset", "no such host", "service unavailable", "bad gateway", "network"}},
}

// Normalize coerces any error into an *AppError. A nil error yields nil.
// Errors that already are (or wrap) an *AppError are returned unchanged.
func Normalize(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return New(ErrCodeTimeout, "The request took too long.", 504).WithCause(err)
	case stderrors.Is(err, context.Canceled):
		return Canceled(err)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return New(ErrCodeTimeout, "The provider connection timed out.", 504).WithCause(err)
		}
		return New(ErrCodeServiceError, "The provider could not be reached.", 502).WithCause(err)
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range messageHints {
		for _, needle := range hint.needles {
			if strings.Contains(msg, needle) {
				return New(hint.code, err.Error(), statusFor(hint.code)).WithCause(err)
			}
		}
	}
	return Unknown(err)
}

// NormalizeFor normalizes err and tags it with the provider that produced it.
func NormalizeFor(provider string, err error) *AppError {
	appErr := Normalize(err)
	if appErr == nil {
		return nil
	}
	if _, ok := appErr.Details["provider"]; !ok && provider != "" {
		appErr = appErr.Clone().WithDetail("provider", provider)
	}
	return appErr
}

// IsRetryable reports whether err is eligible for the fallback attempt.
func IsRetryable(err error) bool {
	appErr := Normalize(err)
	return appErr != nil && appErr.Retryable
}

func statusFor(code ErrorCode) int {
	switch code {
	case ErrCodeAuth:
		return 401
	case ErrCodeRateLimited:
		return 429
	case ErrCodeTimeout:
		return 504
	case ErrCodeServiceError:
		return 502
	default:
		return 500
	}
}
