package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/toeic-import-service/internal/errors"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Import session errors
	ErrSessionNotFound     = errors.New("import session not found")
	ErrSessionAccessDenied = errors.New("access denied to import session")
	ErrImportInProgress    = errors.New("an import is already in progress for this session")
	ErrNothingToImport     = errors.New("no valid records to import")
	ErrNoEligibleRecords   = errors.New("all records failed passage reference validation")

	// File errors
	ErrFileParseFailed     = errors.New("failed to read the uploaded file")
	ErrUnsupportedFileType = errors.New("unsupported file type, expected .xlsx or .csv")
	ErrFileTooLarge        = errors.New("uploaded file is too large")

	// Passage errors
	ErrPassageNotFound = errors.New("passage not found")

	// Import job errors
	ErrImportJobNotFound = errors.New("import job not found")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// BatchWriteError reports a failed batch. Its message is the storage error,
// unchanged, so the caller sees exactly what the backend rejected.
type BatchWriteError struct {
	Batch    int // 1-based
	Imported int // records written before the failure
	Err      error
}

func (e *BatchWriteError) Error() string {
	return e.Err.Error()
}

func (e *BatchWriteError) Unwrap() error {
	return e.Err
}

// ParseError wraps the reader failure behind ErrFileParseFailed
type ParseError struct {
	FileName string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrFileParseFailed.Error(), e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrFileParseFailed, e.Err}
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrPassageNotFound) ||
		errors.Is(err, ErrImportJobNotFound) ||
		repositories.IsNotFoundError(err)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrSessionAccessDenied)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrFileParseFailed) ||
		errors.Is(err, ErrUnsupportedFileType) ||
		errors.Is(err, ErrBadRequest) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// IsConflict checks if error represents a state conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrImportInProgress)
}

// IsImportRejected checks if the import refused to run for lack of records
func IsImportRejected(err error) bool {
	return errors.Is(err, ErrNothingToImport) ||
		errors.Is(err, ErrNoEligibleRecords)
}

// IsBatchWrite checks if error came from a failed batch write
func IsBatchWrite(err error) bool {
	var bwe *BatchWriteError
	return errors.As(err, &bwe)
}
