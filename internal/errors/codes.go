// Package errors provides structured error handling for VaultMCP.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Extraction errors (file, disk)
//   - 3XX: Embedding errors (backend, network)
//   - 4XX: Validation errors
//   - 5XX: Store errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryExtraction indicates file reading and text extraction errors.
	CategoryExtraction Category = "EXTRACTION"
	// CategoryEmbedding indicates embedding backend errors.
	CategoryEmbedding Category = "EMBEDDING"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryStore indicates persistence-layer errors.
	CategoryStore Category = "STORE"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category. Extraction and embedding failures are
// recoverable per file (the sync skips the file and keeps going); store and
// configuration failures are fatal to the operation.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Extraction errors (200-299)
	ErrCodeFileNotFound     = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission   = "ERR_202_FILE_PERMISSION"
	ErrCodeFileTooLarge     = "ERR_203_FILE_TOO_LARGE"
	ErrCodeExtractionFailed = "ERR_204_EXTRACTION_FAILED"

	// Embedding errors (300-399)
	ErrCodeEmbeddingFailed     = "ERR_301_EMBEDDING_FAILED"
	ErrCodeBackendUnavailable  = "ERR_302_BACKEND_UNAVAILABLE"
	ErrCodeEmbeddingMisaligned = "ERR_303_EMBEDDING_MISALIGNED"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeInvalidPath       = "ERR_403_INVALID_PATH"

	// Store errors (500-599)
	ErrCodeStoreUnavailable = "ERR_501_STORE_UNAVAILABLE"
	ErrCodeCorruptIndex     = "ERR_502_CORRUPT_INDEX"
	ErrCodeSyncInProgress   = "ERR_503_SYNC_IN_PROGRESS"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryStore
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryExtraction
	case '3':
		return CategoryEmbedding
	case '4':
		return CategoryValidation
	default:
		return CategoryStore
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryExtraction, CategoryEmbedding:
		// Recoverable per file: log, count, skip.
		return SeverityWarning
	case CategoryValidation:
		if code == ErrCodeDimensionMismatch {
			// Querying or writing with the wrong embedder dimension would
			// silently corrupt the index; abort instead.
			return SeverityFatal
		}
		return SeverityError
	case CategoryConfig, CategoryStore:
		return SeverityFatal
	}
	return SeverityError
}

// isRetryableCode reports whether the operation behind the code may succeed
// if simply tried again.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeBackendUnavailable, ErrCodeEmbeddingFailed, ErrCodeSyncInProgress:
		return true
	}
	return false
}
