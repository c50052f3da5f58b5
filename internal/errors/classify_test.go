package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestClassifyMySQLError(t *testing.T) {
	tests := []struct {
		name        string
		number      uint16
		want        ErrorType
		recoverable bool
	}{
		{"access denied", 1045, ErrorTypePermission, false},
		{"unknown table", 1146, ErrorTypeDatabase, false},
		{"duplicate key", 1062, ErrorTypeRowPersist, false},
		{"missing parent", 1452, ErrorTypeRowPersist, false},
		{"data too long", 1406, ErrorTypeValidation, false},
		{"deadlock", 1213, ErrorTypeDatabase, true},
		{"server gone", 2006, ErrorTypeDatabase, true},
		{"unlisted", 1690, ErrorTypeDatabase, false},
	}

	classifier := NewErrorClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driverErr := &mysql.MySQLError{Number: tt.number, Message: "server says no"}
			appErr := classifier.ClassifyError(fmt.Errorf("insert row: %w", driverErr))

			assert.Equal(t, tt.want, appErr.Type)
			assert.Equal(t, tt.recoverable, appErr.IsRecoverable())
			assert.Equal(t, tt.number, appErr.Context["mysql_error_code"])
		})
	}
}

type retryableErr struct{ retry bool }

func (e retryableErr) Error() string   { return "object store failure" }
func (e retryableErr) Retryable() bool { return e.retry }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		want        ErrorType
		recoverable bool
	}{
		{"no rows", sql.ErrNoRows, ErrorTypeValidation, false},
		{"connection done", sql.ErrConnDone, ErrorTypeDatabase, true},
		{"deadline", context.DeadlineExceeded, ErrorTypeTimeout, true},
		{"cancelled", context.Canceled, ErrorTypeInterruption, false},
		{"network timeout", timeoutErr{}, ErrorTypeTimeout, true},
		{"retryable store", retryableErr{retry: true}, ErrorTypeRemoteIO, true},
		{"permanent store", retryableErr{retry: false}, ErrorTypeRemoteIO, false},
		{"missing file", &os.PathError{Op: "open", Path: "/x.xlsx", Err: syscall.ENOENT}, ErrorTypeValidation, false},
		{"permission", &os.PathError{Op: "open", Path: "/x.xlsx", Err: syscall.EACCES}, ErrorTypePermission, false},
		{"disk full", &os.PathError{Op: "write", Path: "/x.xlsx", Err: syscall.ENOSPC}, ErrorTypeValidation, false},
		{"anything else", errors.New("boom"), ErrorTypeUnknown, false},
	}

	classifier := NewErrorClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := classifier.ClassifyError(tt.err)
			assert.Equal(t, tt.want, appErr.Type)
			assert.Equal(t, tt.recoverable, appErr.IsRecoverable())
		})
	}

	assert.Nil(t, classifier.ClassifyError(nil))
	original := NewStructuralError("bad", nil)
	assert.Same(t, original, classifier.ClassifyError(original))
}
