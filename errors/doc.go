// Package errors provides the uniform error taxonomy used across the
// orchestration layer. Every failure surfaced to a caller is an *AppError
// carrying a machine-readable code, a message, optional details and a
// retryable flag that decides fallback eligibility.
//
// Normalize coerces arbitrary errors (context errors, network errors,
// provider SDK errors with status hints) into an *AppError.
package errors
