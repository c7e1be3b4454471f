package errors

import (
	"fmt"
)

// VaultError is the structured error type for VaultMCP.
// It provides context for error handling, logging, and user presentation.
type VaultError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Extraction, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *VaultError) Unwrap() error {
	return e.Cause
}

// Is matches the target error by code, enabling errors.Is() comparisons
// against sentinel VaultErrors.
func (e *VaultError) Is(target error) bool {
	if t, ok := target.(*VaultError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *VaultError) WithDetail(key, value string) *VaultError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new VaultError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *VaultError {
	return &VaultError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a VaultError from an existing error.
// The error's message becomes the VaultError message.
func Wrap(code string, err error) *VaultError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ExtractionError creates a per-file extraction error (recoverable).
func ExtractionError(message string, cause error) *VaultError {
	return New(ErrCodeExtractionFailed, message, cause)
}

// EmbeddingError creates an embedding backend error (recoverable per file).
func EmbeddingError(message string, cause error) *VaultError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// StoreError creates a persistence-layer error (fatal).
func StoreError(message string, cause error) *VaultError {
	return New(ErrCodeStoreUnavailable, message, cause)
}

// ConfigError creates a configuration error (fatal).
func ConfigError(message string, cause error) *VaultError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *VaultError {
	return New(ErrCodeInvalidInput, message, cause)
}

// DimensionMismatch creates the fatal error raised when the store's recorded
// embedding dimension disagrees with the active embedder.
func DimensionMismatch(expected, got int) *VaultError {
	return New(ErrCodeDimensionMismatch,
		fmt.Sprintf("embedding dimension mismatch: index has %d, embedder produces %d", expected, got),
		nil)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if ve, ok := err.(*VaultError); ok {
		return ve.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors abort the current operation instead of being skipped per file.
func IsFatal(err error) bool {
	if ve, ok := err.(*VaultError); ok {
		return ve.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a VaultError.
// Returns empty string for other error types.
func GetCode(err error) string {
	if ve, ok := err.(*VaultError); ok {
		return ve.Code
	}
	return ""
}
