package errors

import (
	"fmt"
	"maps"
	"net/http"
	"time"
)

// statusClientClosed is nginx's "client closed request".
const statusClientClosed = 499

// AppError is the normalized failure shape. Every provider error is
// reduced to one of these before it reaches the orchestrator or a client.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause attaches the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into e.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if len(details) == 0 {
		return e
	}
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	maps.Copy(e.Details, details)
	return e
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	return e.WithDetails(map[string]any{key: value})
}

// Clone copies e with its own details map so a shared error can be
// annotated per request.
func (e *AppError) Clone() *AppError {
	cp := *e
	cp.Details = maps.Clone(e.Details)
	return &cp
}

// New builds an error whose retryability follows its code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// forProvider builds a provider-scoped error carrying details["provider"].
func forProvider(code ErrorCode, status int, provider, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...), status).WithDetail("provider", provider)
}

// Timeout reports a provider call that ran past its deadline.
func Timeout(provider string, after time.Duration) *AppError {
	return forProvider(ErrCodeTimeout, http.StatusGatewayTimeout, provider,
		"Provider %s did not respond within %s.", provider, after).
		WithDetail("timeout_ms", after.Milliseconds())
}

// RateLimited reports a provider whose request window is exhausted.
func RateLimited(provider string, resetIn time.Duration) *AppError {
	return forProvider(ErrCodeRateLimited, http.StatusTooManyRequests, provider,
		"Provider %s rate limit reached.", provider).
		WithDetail("reset_in_ms", resetIn.Milliseconds())
}

// Auth reports rejected or missing provider credentials.
func Auth(provider, reason string) *AppError {
	if reason == "" {
		reason = "invalid or missing credentials"
	}
	return forProvider(ErrCodeAuth, http.StatusUnauthorized, provider,
		"Provider %s rejected credentials: %s", provider, reason)
}

func UnsupportedType(provider, requestType string) *AppError {
	return forProvider(ErrCodeUnsupportedType, http.StatusBadRequest, provider,
		"Provider %s does not support request type %q.", provider, requestType).
		WithDetail("type", requestType)
}

// ServiceError reports a failing provider backend.
func ServiceError(provider string, cause error) *AppError {
	return forProvider(ErrCodeServiceError, http.StatusBadGateway, provider,
		"Provider %s failed to complete the request.", provider).
		WithCause(cause)
}

// Unavailable reports a provider that was skipped without being called.
func Unavailable(provider string) *AppError {
	return forProvider(ErrCodeServiceError, http.StatusServiceUnavailable, provider,
		"Provider %s is unavailable.", provider).
		WithDetail("reason", "unavailable")
}

// Unknown wraps an error no rule could classify. It stays retryable.
func Unknown(cause error) *AppError {
	msg := "An unexpected error occurred."
	if cause != nil {
		msg = cause.Error()
	}
	return New(ErrCodeUnknown, msg, http.StatusInternalServerError).WithCause(cause)
}

// Configuration reports invalid startup configuration.
func Configuration(reason string) *AppError {
	return New(ErrCodeConfiguration, reason, http.StatusInternalServerError)
}

// Canceled reports an operation the caller abandoned.
func Canceled(cause error) *AppError {
	return New(ErrCodeCanceled, "The request was canceled.", statusClientClosed).WithCause(cause)
}

func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, "Invalid input: "+reason, http.StatusBadRequest)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation carries a pre-formatted validation message.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource), http.StatusNotFound).
		WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}
