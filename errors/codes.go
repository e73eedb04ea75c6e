package errors

// ErrorCode is the machine-readable failure class.
type ErrorCode string

// Provider dispatch codes.
const (
	ErrCodeTimeout         ErrorCode = "TIMEOUT"
	ErrCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrCodeAuth            ErrorCode = "AUTH"
	ErrCodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"
	ErrCodeServiceError    ErrorCode = "SERVICE_ERROR"
	ErrCodeUnknown         ErrorCode = "UNKNOWN"
)

// Service codes. None of these trigger a fallback.
const (
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"
	ErrCodeCanceled      ErrorCode = "CANCELED"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
)

// IsRetryableCode reports whether code is eligible for the one-shot
// fallback attempt.
func IsRetryableCode(code ErrorCode) bool {
	switch code {
	case ErrCodeTimeout, ErrCodeRateLimited, ErrCodeServiceError, ErrCodeUnknown:
		return true
	}
	return false
}
