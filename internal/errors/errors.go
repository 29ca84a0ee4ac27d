// Package errors provides structured error types for tabload.
// All errors include a category, code, message, and retryable flag so the
// driver can tell fatal run-level failures from per-file ones.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by the stage that produced them.
type ErrorCategory string

const (
	ErrCategoryValidation  ErrorCategory = "VALIDATION"
	ErrCategoryEnumeration ErrorCategory = "ENUMERATION"
	ErrCategoryDecode      ErrorCategory = "DECODE"
	ErrCategoryStorage     ErrorCategory = "STORAGE"
	ErrCategoryInternal    ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidConfig = "INVALID_CONFIG"

	// Enumeration codes
	CodeFolderNotFound   = "FOLDER_NOT_FOUND"
	CodeFolderUnreadable = "FOLDER_UNREADABLE"
	CodeNotADirectory    = "NOT_A_DIRECTORY"
	CodeStagingFailed    = "STAGING_FAILED"

	// Decode codes
	CodeOpenFailed      = "OPEN_FAILED"
	CodeMalformedRecord = "MALFORMED_RECORD"

	// Storage codes
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeListFailed     = "LIST_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Internal codes
	CodeDuplicateResult = "DUPLICATE_RESULT"
	CodeUnknownResult   = "UNKNOWN_RESULT"
	CodeMissingResult   = "MISSING_RESULT"
	CodeAborted         = "ABORTED"
	CodeUnexpected      = "UNEXPECTED"
)

// LoadError is the structured error type used throughout the system.
type LoadError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *LoadError) Is(target error) bool {
	var t *LoadError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new LoadError.
func New(category ErrorCategory, code, message string) *LoadError {
	return &LoadError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new LoadError wrapping an existing error.
// A retryable cause keeps the wrapper retryable.
func Wrap(category ErrorCategory, code, message string, cause error) *LoadError {
	return &LoadError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code) || IsRetryable(cause),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *LoadError) WithDetails(details map[string]interface{}) *LoadError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a LoadError.
func GetCategory(err error) ErrorCategory {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a LoadError.
func GetCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsFileLevel reports whether err is attributable to a single file rather than the whole run.
func IsFileLevel(err error) bool {
	return GetCategory(err) == ErrCategoryDecode
}

func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeListFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(message string) *LoadError {
	return New(ErrCategoryValidation, CodeInvalidConfig, message)
}

func NewEnumerationError(code, message string, cause error) *LoadError {
	return Wrap(ErrCategoryEnumeration, code, message, cause)
}

func NewDecodeError(code, message string, cause error) *LoadError {
	return Wrap(ErrCategoryDecode, code, message, cause)
}

func NewStorageError(code, message string, cause error) *LoadError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewInvariantError(code, message string) *LoadError {
	return New(ErrCategoryInternal, code, message)
}

func NewInternalError(message string, cause error) *LoadError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
