// Package errors provides structured error handling for mvmatch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
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

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound     = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid      = "ERR_102_CONFIG_INVALID"
	ErrCodeMethodUnknown      = "ERR_103_METHOD_UNKNOWN"
	ErrCodeMethodIncompatible = "ERR_104_METHOD_INCOMPATIBLE"

	// IO errors (200-299)
	ErrCodeFileNotFound  = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFileCorrupt   = "ERR_202_FILE_CORRUPT"
	ErrCodeWriteFailed   = "ERR_203_WRITE_FAILED"
	ErrCodeRegionMissing = "ERR_204_REGION_MISSING"
	ErrCodeLockHeld      = "ERR_205_LOCK_HELD"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidPair       = "ERR_402_INVALID_PAIR"
	ErrCodeInvalidScene      = "ERR_403_INVALID_SCENE"
	ErrCodeDimensionMismatch = "ERR_404_DIMENSION_MISMATCH"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeMatchFailed  = "ERR_502_MATCH_FAILED"
	ErrCodeExportFailed = "ERR_503_EXPORT_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity from error code.
// Region misses and export failures degrade the run; everything else aborts it.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeRegionMissing:
		return SeverityWarning
	case ErrCodeExportFailed:
		return SeverityWarning
	default:
		return SeverityFatal
	}
}
