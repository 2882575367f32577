package errors

import (
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeMissingSource      ErrorType = "MISSING_SOURCE"
	ErrTypeUnresolvableColumn ErrorType = "UNRESOLVABLE_COLUMN"
	ErrTypeInsufficientData   ErrorType = "INSUFFICIENT_DATA"
	ErrTypeNumerical          ErrorType = "NUMERICAL_INSTABILITY"
	ErrTypeEstimationFailed   ErrorType = "ESTIMATION_FAILED"
	ErrTypeMissingDependency  ErrorType = "MISSING_OPTIONAL_DEPENDENCY"
	ErrTypeMalformedDate      ErrorType = "MALFORMED_DATE_LABEL"
	ErrTypeLeakage            ErrorType = "LEAKAGE"
	ErrTypeParsing            ErrorType = "PARSING"
	ErrTypeStorage            ErrorType = "STORAGE"
	ErrTypeValidation         ErrorType = "VALIDATION"
	ErrTypeConfig             ErrorType = "CONFIG"
)

// Sentinels for errors.Is checks. Matching is by type only, so any
// AppError of the same type satisfies errors.Is against these.
var (
	ErrMissingSource      = &AppError{Type: ErrTypeMissingSource, Message: "missing source"}
	ErrUnresolvableColumn = &AppError{Type: ErrTypeUnresolvableColumn, Message: "unresolvable column"}
	ErrInsufficientData   = &AppError{Type: ErrTypeInsufficientData, Message: "insufficient data"}
	ErrNumerical          = &AppError{Type: ErrTypeNumerical, Message: "numerical instability"}
	ErrEstimationFailed   = &AppError{Type: ErrTypeEstimationFailed, Message: "estimation failed"}
	ErrMissingDependency  = &AppError{Type: ErrTypeMissingDependency, Message: "missing optional dependency"}
	ErrMalformedDate      = &AppError{Type: ErrTypeMalformedDate, Message: "malformed date label"}
	ErrLeakage            = &AppError{Type: ErrTypeLeakage, Message: "target leakage"}
	ErrValidation         = &AppError{Type: ErrTypeValidation, Message: "validation failed"}
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError of the same type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsFatal reports whether an error of this type must abort a batch run.
// Soft types are recovered by the component that raised them.
func (t ErrorType) IsFatal() bool {
	switch t {
	case ErrTypeInsufficientData, ErrTypeNumerical, ErrTypeMissingDependency, ErrTypeMalformedDate:
		return false
	}
	return true
}

// Helper functions for common error types

// NewMissingSourceError reports a required directory or file that does not exist.
func NewMissingSourceError(path string, cause error) *AppError {
	return NewAppError(ErrTypeMissingSource, fmt.Sprintf("source not found: %s", path), cause).
		WithContext("path", path)
}

// NewUnresolvableColumnError reports a column that could not be found even
// after searching the heuristic candidates.
func NewUnresolvableColumnError(column string, candidates []string, available []string) *AppError {
	return NewAppError(ErrTypeUnresolvableColumn,
		fmt.Sprintf("column %q not found; searched for names containing %v", column, candidates), nil).
		WithContext("column", column).
		WithContext("candidates", candidates).
		WithContext("available", available)
}

// NewInsufficientDataError reports fewer usable rows than a component requires.
func NewInsufficientDataError(what string, have, need int) *AppError {
	return NewAppError(ErrTypeInsufficientData,
		fmt.Sprintf("%s: %d usable rows, need at least %d", what, have, need), nil).
		WithContext("rows", have).
		WithContext("min_rows", need)
}

// NewNumericalError reports non-finite estimates.
func NewNumericalError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNumerical, message, cause)
}

// NewEstimationFailedError reports estimates that stay non-finite after the
// covariance fallback. It aborts the run.
func NewEstimationFailedError(message string, cause error) *AppError {
	return NewAppError(ErrTypeEstimationFailed, message, cause)
}

// NewMissingDependencyError reports an optional estimator that is not available.
func NewMissingDependencyError(name string) *AppError {
	return NewAppError(ErrTypeMissingDependency, fmt.Sprintf("optional dependency %q unavailable", name), nil).
		WithContext("dependency", name)
}

// NewMalformedDateError reports a macro date label with fewer than six digits.
func NewMalformedDateError(label string) *AppError {
	return NewAppError(ErrTypeMalformedDate, fmt.Sprintf("cannot parse date label %q", label), nil).
		WithContext("label", label)
}

// NewLeakageError reports a feature list that contains the target or its source.
func NewLeakageError(target string, offending []string) *AppError {
	return NewAppError(ErrTypeLeakage,
		fmt.Sprintf("feature set for %q contains %v", target, offending), nil).
		WithContext("target", target).
		WithContext("offending", offending)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
