package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestAppError_New_Retryable(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
	}{
		{ErrCodeTimeout, true},
		{ErrCodeRateLimited, true},
		{ErrCodeServiceError, true},
		{ErrCodeUnknown, true},
		{ErrCodeAuth, false},
		{ErrCodeUnsupportedType, false},
		{ErrCodeConfiguration, false},
		{ErrCodeCanceled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "msg", http.StatusInternalServerError)
			if err.Retryable != tt.retryable {
				t.Errorf("expected retryable=%v for %s", tt.retryable, tt.code)
			}
		})
	}
}

func TestAppError_Timeout(t *testing.T) {
	err := Timeout("providerA", 250*time.Millisecond)
	if err.Code != ErrCodeTimeout {
		t.Errorf("expected TIMEOUT, got %s", err.Code)
	}
	if err.Details["provider"] != "providerA" {
		t.Errorf("expected provider detail, got %v", err.Details["provider"])
	}
	if err.Details["timeout_ms"] != int64(250) {
		t.Errorf("expected timeout_ms=250, got %v", err.Details["timeout_ms"])
	}
	if !err.Retryable {
		t.Error("Timeout should be retryable")
	}
}

func TestAppError_UnsupportedType(t *testing.T) {
	err := UnsupportedType("providerA", "threat-context")
	if err.Retryable {
		t.Error("UnsupportedType should not be retryable")
	}
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", err.HTTPStatus)
	}
}

func TestAppError_ErrorString(t *testing.T) {
	err := ServiceError("p", fmt.Errorf("boom"))
	want := "SERVICE_ERROR: Provider p failed to complete the request. (cause: boom)"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
	if !stderrors.Is(err, err.Cause) {
		t.Error("expected Unwrap to expose the cause")
	}
}

func TestAppError_CloneIsolatesDetails(t *testing.T) {
	orig := Auth("p", "")
	cp := orig.Clone().WithDetail("request_id", "r1")
	if _, ok := orig.Details["request_id"]; ok {
		t.Error("clone must not mutate the original details")
	}
	if cp.Details["provider"] != "p" {
		t.Error("clone should keep existing details")
	}
}

type fakeNetError struct{ timeout bool }

func (e fakeNetError) Error() string   { return "dial tcp: fake" }
func (e fakeNetError) Timeout() bool   { return e.timeout }
func (e fakeNetError) Temporary() bool { return false }

var _ net.Error = fakeNetError{}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeCanceled},
		{"net timeout", fakeNetError{timeout: true}, ErrCodeTimeout},
		{"net failure", fakeNetError{}, ErrCodeServiceError},
		{"auth hint", stderrors.New("request failed: status 401 Unauthorized"), ErrCodeAuth},
		{"rate hint", stderrors.New("Too Many Requests"), ErrCodeRateLimited},
		{"network hint", stderrors.New("network error"), ErrCodeServiceError},
		{"unknown", stderrors.New("something odd"), ErrCodeUnknown},
		{"app error passthrough", RateLimited("p", time.Second), ErrCodeRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.err)
			if got.Code != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Code)
			}
			if got.Message == "" {
				t.Error("normalized error must carry a message")
			}
		})
	}
}

func TestNormalize_Nil(t *testing.T) {
	if Normalize(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestNormalize_PreservesIdentity(t *testing.T) {
	orig := Auth("p", "bad key")
	wrapped := fmt.Errorf("outer: %w", orig)
	if Normalize(wrapped) != orig {
		t.Error("expected the wrapped AppError to be returned unchanged")
	}
}

func TestNormalizeFor_TagsProvider(t *testing.T) {
	got := NormalizeFor("providerA", stderrors.New("network error"))
	if got.Details["provider"] != "providerA" {
		t.Errorf("expected provider detail, got %v", got.Details)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(stderrors.New("network error")) {
		t.Error("network errors should be retryable")
	}
	if IsRetryable(Auth("p", "")) {
		t.Error("auth errors should not be retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
}

func TestToResponse(t *testing.T) {
	resp := RateLimited("p", 2*time.Second).ToResponse()
	if resp.Error.Code != ErrCodeRateLimited || !resp.Error.Retryable {
		t.Errorf("unexpected response body: %+v", resp.Error)
	}
	if resp.Error.Details["reset_in_ms"] != int64(2000) {
		t.Errorf("expected reset_in_ms=2000, got %v", resp.Error.Details["reset_in_ms"])
	}
}
