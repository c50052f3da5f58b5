// Package errors defines the failure taxonomy shared by the exporter, the
// importer, the backup store and the CLI.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType is the category an operator sees and the CLI maps to an exit code
type ErrorType string

const (
	// ErrorTypeStructural: unreadable workbook or a required header missing
	ErrorTypeStructural ErrorType = "structural"
	// ErrorTypeMissingSheet: an entity sheet is absent, the entity is skipped
	ErrorTypeMissingSheet ErrorType = "missing_sheet"
	// ErrorTypeMissingColumn: an optional column is absent, defaults apply
	ErrorTypeMissingColumn ErrorType = "missing_optional_column"
	// ErrorTypeRowParse: a row whose cells could not be coerced
	ErrorTypeRowParse ErrorType = "row_parse"
	// ErrorTypeRowPersist: a row the data access layer rejected
	ErrorTypeRowPersist ErrorType = "row_persist"
	// ErrorTypeRemoteIO: upload, download, list or delete failed
	ErrorTypeRemoteIO ErrorType = "remote_io"
	// ErrorTypeConcurrency: another sync operation holds the busy guard
	ErrorTypeConcurrency ErrorType = "concurrency"

	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeDatabase      ErrorType = "database"
	ErrorTypePermission    ErrorType = "permission"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeInterruption  ErrorType = "interruption"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// AppError carries a category, the internal message for logs and an
// optional operator-facing message
type AppError struct {
	Type        ErrorType
	Message     string
	Cause       error
	Context     map[string]interface{}
	Recoverable bool
	UserMessage string
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Type) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// GetUserMessage falls back to Message when no operator text was set
func (e *AppError) GetUserMessage() string {
	if e.UserMessage == "" {
		return e.Message
	}
	return e.UserMessage
}

// IsRecoverable reports whether the retry handler may try again
func (e *AppError) IsRecoverable() bool { return e.Recoverable }

// WithContext attaches a detail such as the sheet or row number
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = map[string]interface{}{}
	}
	e.Context[key] = value
	return e
}

// WithUserMessage sets the text printed by the CLI instead of Message
func (e *AppError) WithUserMessage(msg string) *AppError {
	e.UserMessage = msg
	return e
}

func newError(errorType ErrorType, message string, cause error, recoverable bool) *AppError {
	return &AppError{
		Type:        errorType,
		Message:     message,
		Cause:       cause,
		Context:     map[string]interface{}{},
		Recoverable: recoverable,
	}
}

// NewAppError returns a permanent error
func NewAppError(errorType ErrorType, message string, cause error) *AppError {
	return newError(errorType, message, cause, false)
}

// NewRecoverableError returns an error the retry handler will try again
func NewRecoverableError(errorType ErrorType, message string, cause error) *AppError {
	return newError(errorType, message, cause, true)
}

func NewStructuralError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeStructural, message, cause).
		WithUserMessage("The backup file is not a valid workbook for this application: " + message)
}

func NewMissingSheetError(sheet string) *AppError {
	return NewAppError(ErrorTypeMissingSheet, "sheet "+sheet+" is missing", nil).
		WithContext("sheet", sheet)
}

func NewMissingColumnError(sheet, column string) *AppError {
	return NewAppError(ErrorTypeMissingColumn, fmt.Sprintf("sheet %s has no %s column", sheet, column), nil).
		WithContext("sheet", sheet).
		WithContext("column", column)
}

func NewRowParseError(sheet string, row int, cause error) *AppError {
	return NewAppError(ErrorTypeRowParse, fmt.Sprintf("%s row %d could not be read", sheet, row), cause).
		WithContext("sheet", sheet).
		WithContext("row", row)
}

func NewRowPersistError(sheet string, row int, cause error) *AppError {
	return NewAppError(ErrorTypeRowPersist, fmt.Sprintf("%s row %d could not be saved", sheet, row), cause).
		WithContext("sheet", sheet).
		WithContext("row", row)
}

func NewRemoteIOError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeRemoteIO, message, cause)
}

// NewConcurrencyError rejects a call while running is in flight
func NewConcurrencyError(running string) *AppError {
	return NewAppError(ErrorTypeConcurrency, running+" is already in progress", nil).
		WithContext("running", running).
		WithUserMessage("Another backup or restore is already running. Try again when it finishes.")
}

func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeValidation, message, cause)
}

func NewConfigurationError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeConfiguration, message, cause)
}

func asAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// IsRecoverableError reports whether err is a recoverable AppError
func IsRecoverableError(err error) bool {
	appErr, ok := asAppError(err)
	return ok && appErr.Recoverable
}

// GetErrorType returns ErrorTypeUnknown for errors outside the taxonomy
func GetErrorType(err error) ErrorType {
	if appErr, ok := asAppError(err); ok {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

func IsType(err error, errorType ErrorType) bool {
	return GetErrorType(err) == errorType
}

// FormatUserError is the single line the CLI prints after "Error: "
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := asAppError(err); ok {
		return appErr.GetUserMessage()
	}
	return "An unexpected error occurred. Run again with --verbose for details."
}

// WrapError adds message to err. AppErrors keep their type; anything else
// goes through the classifier first.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := asAppError(err); ok {
		wrapped := NewAppError(appErr.Type, message, err)
		wrapped.Recoverable = appErr.Recoverable
		return wrapped
	}
	classified := NewErrorClassifier().ClassifyError(err)
	classified.Message = message
	return classified
}
