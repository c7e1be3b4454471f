package mcp

import (
	"errors"
	"fmt"

	verrs "github.com/vaultmcp/vaultmcp/internal/errors"
)

// Custom MCP error codes for vaultmcp.
const (
	// ErrCodeSyncBusy indicates another sync is already running.
	ErrCodeSyncBusy = -32001

	// ErrCodeEmbeddingFailed indicates embedding generation failed.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeStoreFailure indicates the index store is unavailable or corrupt.
	ErrCodeStoreFailure = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an invalid-params error.
func NewInvalidParamsError(message string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: message}
}

// MapError converts internal errors to MCP errors so clients get a stable
// code and a readable message.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var verr *verrs.VaultError
	if errors.As(err, &verr) {
		switch verr.Code {
		case verrs.ErrCodeSyncInProgress:
			return &MCPError{Code: ErrCodeSyncBusy, Message: verr.Message}
		case verrs.ErrCodeEmbeddingFailed, verrs.ErrCodeBackendUnavailable, verrs.ErrCodeEmbeddingMisaligned:
			return &MCPError{Code: ErrCodeEmbeddingFailed, Message: verr.Message}
		case verrs.ErrCodeStoreUnavailable, verrs.ErrCodeCorruptIndex, verrs.ErrCodeDimensionMismatch:
			return &MCPError{Code: ErrCodeStoreFailure, Message: verr.Message}
		case verrs.ErrCodeInvalidInput, verrs.ErrCodeInvalidPath:
			return &MCPError{Code: ErrCodeInvalidParams, Message: verr.Message}
		}
		return &MCPError{Code: ErrCodeInternalError, Message: verr.Message}
	}

	return &MCPError{Code: ErrCodeInternalError, Message: err.Error()}
}
