package errors

import (
	"fmt"
	"time"
)

// ErrorCode is a machine-readable error classifier.
type ErrorCode string

const (
	// Generic codes.
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeBadRequest   ErrorCode = "BAD_REQUEST"

	// Challenge lifecycle codes.
	ErrCodeInvalidMethod       ErrorCode = "INVALID_METHOD"
	ErrCodeDuplicatePending    ErrorCode = "DUPLICATE_PENDING"
	ErrCodeAlreadyVerified     ErrorCode = "ALREADY_VERIFIED"
	ErrCodeChallengeNotFound   ErrorCode = "CHALLENGE_NOT_FOUND"
	ErrCodeChallengeExpired    ErrorCode = "CHALLENGE_EXPIRED"
	ErrCodeChallengeNotPending ErrorCode = "CHALLENGE_NOT_PENDING"
	ErrCodeInvalidState        ErrorCode = "INVALID_STATE"
	ErrCodeNodeAlreadyClaimed  ErrorCode = "NODE_ALREADY_CLAIMED"

	// Proof validation codes.
	ErrCodeProofFormatInvalid   ErrorCode = "PROOF_FORMAT_INVALID"
	ErrCodeAddressFormatInvalid ErrorCode = "ADDRESS_FORMAT_INVALID"
	ErrCodeSignatureInvalid     ErrorCode = "SIGNATURE_INVALID"
	ErrCodeDNSRecordMissing     ErrorCode = "DNS_RECORD_MISSING"
	ErrCodeDNSIPMismatch        ErrorCode = "DNS_IP_MISMATCH"

	// Throttling and infrastructure codes.
	ErrCodeRateLimit    ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeStorageError ErrorCode = "STORAGE_ERROR"
	ErrCodeQueueError   ErrorCode = "QUEUE_ERROR"
)

// AppError is the typed error carried across service boundaries. Every
// rejection surfaced to a caller holds a code plus a remediation hint.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches structured detail to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRequestID tags the error with the request it occurred in.
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// New creates a new application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Newf creates a new application error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an underlying error with an application code.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// NewStorageError wraps a storage collaborator failure.
func NewStorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorageError, fmt.Sprintf("Storage operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// NewUnauthorizedError creates an authorization failure.
func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("Unauthorized: %s", reason)).
		WithDetail("reason", reason)
}

// NewRateLimitError reports an exceeded budget together with the moment the
// window resets, so clients can back off deterministically.
func NewRateLimitError(action string, resetAt time.Time) *AppError {
	return New(ErrCodeRateLimit, fmt.Sprintf("Rate limit exceeded for %s", action)).
		WithDetail("action", action).
		WithDetail("reset_at", resetAt.UTC().Format(time.RFC3339))
}

// AsAppError extracts an AppError from err if it carries one.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil {
		appErr, _ = err.(*AppError)
	}
	return appErr, appErr != nil
}

// CodeOf returns the error's code, or INTERNAL_ERROR for untyped errors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
