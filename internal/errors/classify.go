package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"

	"github.com/go-sql-driver/mysql"
)

// mysqlRule maps a server error number to a category
type mysqlRule struct {
	errorType   ErrorType
	message     string
	recoverable bool
}

var mysqlRules = map[uint16]mysqlRule{
	1045: {ErrorTypePermission, "Database access denied, check username and password", false},
	1142: {ErrorTypePermission, "The database user may not write the store tables", false},
	1146: {ErrorTypeDatabase, "A store table does not exist, run with a migrated schema", false},
	1054: {ErrorTypeDatabase, "A store table is missing a column", false},
	1062: {ErrorTypeRowPersist, "A row with the same id already exists", false},
	1406: {ErrorTypeValidation, "A value is too long for its column", false},
	1452: {ErrorTypeRowPersist, "A row references a parent that does not exist", false},
	1205: {ErrorTypeDatabase, "Lock wait timeout", true},
	1213: {ErrorTypeDatabase, "Deadlock while writing rows", true},
	2003: {ErrorTypeDatabase, "Cannot reach the MySQL server", true},
	2006: {ErrorTypeDatabase, "The MySQL server closed the connection", true},
	2013: {ErrorTypeDatabase, "Lost connection to the MySQL server", true},
}

// ErrorClassifier turns driver, network, context and file system errors
// into AppErrors
type ErrorClassifier struct{}

func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// ClassifyError returns err unchanged when it already is an AppError
func (ec *ErrorClassifier) ClassifyError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := asAppError(err); ok {
		return appErr
	}

	// object store errors decide their own retry policy
	var remote interface{ Retryable() bool }
	if errors.As(err, &remote) {
		return newError(ErrorTypeRemoteIO, "Remote storage operation failed", err, remote.Retryable())
	}

	for _, classify := range []func(error) *AppError{
		classifyDatabase,
		classifyContext,
		classifyNetwork,
		classifyFileSystem,
	} {
		if appErr := classify(err); appErr != nil {
			return appErr
		}
	}
	return NewAppError(ErrorTypeUnknown, "An unexpected error occurred", err)
}

func classifyDatabase(err error) *AppError {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		rule, ok := mysqlRules[mysqlErr.Number]
		if !ok {
			rule = mysqlRule{ErrorTypeDatabase, "MySQL error: " + mysqlErr.Message, false}
		}
		return newError(rule.errorType, rule.message, err, rule.recoverable).
			WithContext("mysql_error_code", mysqlErr.Number)
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return NewAppError(ErrorTypeValidation, "No matching row", err)
	case errors.Is(err, sql.ErrConnDone):
		return NewRecoverableError(ErrorTypeDatabase, "Database connection is closed", err)
	case errors.Is(err, mysql.ErrInvalidConn):
		return NewRecoverableError(ErrorTypeDatabase, "Database connection is broken", err)
	}
	return nil
}

func classifyContext(err error) *AppError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewRecoverableError(ErrorTypeTimeout, "Operation timed out", err)
	case errors.Is(err, context.Canceled):
		return NewAppError(ErrorTypeInterruption, "Operation was cancelled", err)
	}
	return nil
}

func classifyNetwork(err error) *AppError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewRecoverableError(ErrorTypeTimeout, "Network operation timed out", err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return NewRecoverableError(ErrorTypeRemoteIO, "Could not connect to remote storage", err)
		}
		return NewRecoverableError(ErrorTypeRemoteIO, "Connection to remote storage failed during "+opErr.Op, err)
	}
	return nil
}

func classifyFileSystem(err error) *AppError {
	var pathErr *os.PathError
	if !errors.As(err, &pathErr) {
		return nil
	}
	switch {
	case errors.Is(pathErr.Err, syscall.ENOENT):
		return NewAppError(ErrorTypeValidation, fmt.Sprintf("%s does not exist", pathErr.Path), err)
	case errors.Is(pathErr.Err, syscall.EACCES), errors.Is(pathErr.Err, syscall.EPERM):
		return NewAppError(ErrorTypePermission, fmt.Sprintf("No permission to %s %s", pathErr.Op, pathErr.Path), err)
	case errors.Is(pathErr.Err, syscall.ENOSPC):
		return NewAppError(ErrorTypeValidation, "No space left for the workbook", err).
			WithContext("path", pathErr.Path)
	}
	return nil
}
