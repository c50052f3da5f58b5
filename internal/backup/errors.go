package backup

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// BackupErrorType classifies failures of the remote store, the codec and
// configuration checks
type BackupErrorType string

const (
	BackupErrorTypeStorage       BackupErrorType = "storage"
	BackupErrorTypeNetwork       BackupErrorType = "network"
	BackupErrorTypeNotFound      BackupErrorType = "not_found"
	BackupErrorTypePermission    BackupErrorType = "permission"
	BackupErrorTypeCompression   BackupErrorType = "compression"
	BackupErrorTypeEncryption    BackupErrorType = "encryption"
	BackupErrorTypeCorruption    BackupErrorType = "corruption"
	BackupErrorTypeValidation    BackupErrorType = "validation"
	BackupErrorTypeConfiguration BackupErrorType = "configuration"
)

// retryPolicy says how a kind behaves when a caller considers another
// attempt. Kinds that are neither retryable nor permanent (compression) may
// succeed on a fresh export but not on a blind retry.
type retryPolicy struct {
	retryable bool
	permanent bool
}

var retryPolicies = map[BackupErrorType]retryPolicy{
	BackupErrorTypeStorage:       {retryable: true},
	BackupErrorTypeNetwork:       {retryable: true},
	BackupErrorTypeNotFound:      {permanent: true},
	BackupErrorTypePermission:    {permanent: true},
	BackupErrorTypeEncryption:    {permanent: true},
	BackupErrorTypeCorruption:    {permanent: true},
	BackupErrorTypeValidation:    {permanent: true},
	BackupErrorTypeConfiguration: {permanent: true},
}

// BackupError is returned by object stores, the artifact codec and the
// backup store. Context carries the object key, bucket or prefix involved.
type BackupError struct {
	Type    BackupErrorType        `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *BackupError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Context[k])
		}
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *BackupError) Unwrap() error { return e.Cause }

// Retryable is consulted by the application error classifier
func (e *BackupError) Retryable() bool {
	return retryPolicies[e.Type].retryable
}

// WithContext records where the failure happened, e.g. the object key
func (e *BackupError) WithContext(key string, value interface{}) *BackupError {
	if e.Context == nil {
		e.Context = make(map[string]interface{}, 1)
	}
	e.Context[key] = value
	return e
}

// NewBackupError builds an error of the given kind
func NewBackupError(errorType BackupErrorType, message string, cause error) *BackupError {
	return &BackupError{Type: errorType, Message: message, Cause: cause}
}

func NewStorageError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeStorage, message, cause)
}

func NewNetworkError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeNetwork, message, cause)
}

func NewNotFoundError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeNotFound, message, cause)
}

func NewPermissionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypePermission, message, cause)
}

func NewCompressionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCompression, message, cause)
}

func NewEncryptionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeEncryption, message, cause)
}

func NewCorruptionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCorruption, message, cause)
}

func NewValidationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeValidation, message, cause)
}

func NewConfigurationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeConfiguration, message, cause)
}

func kindOf(err error) (BackupErrorType, bool) {
	var be *BackupError
	if errors.As(err, &be) {
		return be.Type, true
	}
	return "", false
}

// IsRetryable reports whether another attempt at the same remote call may
// succeed
func IsRetryable(err error) bool {
	kind, ok := kindOf(err)
	return ok && retryPolicies[kind].retryable
}

// IsPermanent reports whether retrying err is pointless
func IsPermanent(err error) bool {
	kind, ok := kindOf(err)
	return ok && retryPolicies[kind].permanent
}

// IsNotFound reports whether err says the object or backup does not exist
func IsNotFound(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == BackupErrorTypeNotFound
}

// ValidationError is one rejected configuration field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found by a Validate method so the
// operator can fix them in one pass
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return "configuration is valid"
	case 1:
		return "invalid configuration: " + e[0].Error()
	}
	parts := make([]string, len(e))
	for i := range e {
		parts[i] = e[i].Error()
	}
	return fmt.Sprintf("invalid configuration (%d problems): %s", len(e), strings.Join(parts, "; "))
}

// Add records a problem with field
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{Field: field, Message: message, Value: value})
}

// Merge folds in the result of a nested Validate call. A nested collection
// is appended with its field names prefixed by field.
func (e *ValidationErrors) Merge(field string, err error) {
	if err == nil {
		return
	}
	var nested ValidationErrors
	if !errors.As(err, &nested) {
		e.Add(field, err.Error(), nil)
		return
	}
	for _, v := range nested {
		v.Field = field + "." + v.Field
		*e = append(*e, v)
	}
}

func (e ValidationErrors) HasErrors() bool { return len(e) > 0 }

// orNil keeps a Validate method from returning a typed nil
func (e ValidationErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
