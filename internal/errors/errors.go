package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeSchema       ErrorType = "SCHEMA"
	ErrTypeDuplicateKey ErrorType = "DUPLICATE_KEY"
	ErrTypeParsing      ErrorType = "PARSING"
	ErrTypeStorage      ErrorType = "STORAGE"
	ErrTypeValidation   ErrorType = "VALIDATION"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeConfig       ErrorType = "CONFIG"
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

// NewSchemaError reports a table whose layout does not match its rule.
// It is fatal for that table id only.
func NewSchemaError(tableID int, message string) *AppError {
	return NewAppError(ErrTypeSchema, fmt.Sprintf("table %d: %s", tableID, message), nil).
		WithContext("table_id", tableID)
}

// NewMissingColumnError is the common schema mismatch: an expected column is absent
func NewMissingColumnError(tableID int, column string) *AppError {
	return NewSchemaError(tableID, fmt.Sprintf("missing expected column %q", column)).
		WithContext("column", column)
}

// NewDuplicateKeyError reports two long records competing for one pivot cell.
// It is fatal for the whole run.
func NewDuplicateKeyError(key fmt.Stringer, firstTable, secondTable int) *AppError {
	return NewAppError(ErrTypeDuplicateKey,
		fmt.Sprintf("duplicate pivot key %s from tables %d and %d", key, firstTable, secondTable), nil).
		WithContext("key", key.String()).
		WithContext("tables", []int{firstTable, secondTable})
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

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// IsType reports whether any AppError in err's chain has the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	for err != nil {
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// TableID extracts the table id recorded on an AppError, if any
func TableID(err error) (int, bool) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return 0, false
	}
	id, ok := appErr.Context["table_id"].(int)
	return id, ok
}

// TypeOf returns the type of the outermost AppError in err's chain, or an
// empty ErrorType when there is none
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}
