package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/logging"
)

// SyncLogger logs sync operations with a correlation id per operation and
// optionally writes a JSON audit trail
type SyncLogger struct {
	logger      *logging.Logger
	auditLogger *logrus.Logger
	auditFile   io.Closer
}

// SyncLoggerConfig holds configuration for sync logging
type SyncLoggerConfig struct {
	Logger         *logging.Logger
	EnableAuditLog bool
	AuditLogFile   string
	// AuditOutput replaces the audit file, mainly for tests
	AuditOutput io.Writer
}

// LogEntry represents a structured log entry for one sync operation
type LogEntry struct {
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
	Operation     string                 `json:"operation"`
	Status        string                 `json:"status"`
	Duration      string                 `json:"duration,omitempty"`
	Success       bool                   `json:"success"`
	Error         string                 `json:"error,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// NewSyncLogger creates a sync logger
func NewSyncLogger(config SyncLoggerConfig) (*SyncLogger, error) {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	sl := &SyncLogger{logger: logger}

	if !config.EnableAuditLog {
		return sl, nil
	}

	output := config.AuditOutput
	if output == nil {
		if config.AuditLogFile == "" {
			return nil, NewConfigurationError("audit log file is required when audit logging is enabled", nil)
		}
		if err := os.MkdirAll(filepath.Dir(config.AuditLogFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create audit log directory: %w", err)
		}
		file, err := os.OpenFile(config.AuditLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log file: %w", err)
		}
		output = file
		sl.auditFile = file
	}

	auditLogger := logrus.New()
	auditLogger.SetOutput(output)
	auditLogger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	auditLogger.SetLevel(logrus.InfoLevel)
	sl.auditLogger = auditLogger

	return sl, nil
}

// NewCorrelationID returns a fresh operation id
func NewCorrelationID() string {
	return uuid.New().String()
}

// LogOperationStart logs the start of a sync operation and returns the
// function that logs its outcome
func (sl *SyncLogger) LogOperationStart(ctx context.Context, operation, correlationID string, metadata map[string]interface{}) func(error, map[string]interface{}) {
	startTime := time.Now()

	entry := LogEntry{
		Timestamp:     startTime,
		CorrelationID: correlationID,
		Operation:     operation,
		Status:        "started",
		Success:       true,
		Metadata:      make(map[string]interface{}, len(metadata)),
	}
	for k, v := range metadata {
		entry.Metadata[k] = v
	}

	sl.logStructured(entry)
	sl.logAudit(correlationID, operation, "started", entry.Metadata)

	return func(err error, details map[string]interface{}) {
		duration := time.Since(startTime)
		entry.Timestamp = time.Now()
		entry.Status = "completed"
		entry.Duration = duration.String()
		entry.Success = err == nil

		if err != nil {
			entry.Error = err.Error()
			entry.Status = "failed"
		}
		for k, v := range details {
			entry.Metadata[k] = v
		}

		sl.logStructured(entry)

		result := "success"
		if err != nil {
			result = "failure"
		}
		audit := map[string]interface{}{"duration": entry.Duration}
		for k, v := range entry.Metadata {
			audit[k] = v
		}
		if entry.Error != "" {
			audit["error"] = entry.Error
		}
		sl.logAudit(correlationID, operation, result, audit)
	}
}

// LogStateTransition logs one step of the operation state machine
func (sl *SyncLogger) LogStateTransition(correlationID, operation string, from, to OperationState) {
	sl.logger.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"operation":      operation,
		"from":           string(from),
		"to":             string(to),
	}).Debug("Operation state changed")
}

// Close releases the audit file
func (sl *SyncLogger) Close() error {
	if sl.auditFile != nil {
		return sl.auditFile.Close()
	}
	return nil
}

func (sl *SyncLogger) logStructured(entry LogEntry) {
	fields := map[string]interface{}{
		"correlation_id": entry.CorrelationID,
		"operation":      entry.Operation,
		"status":         entry.Status,
		"success":        entry.Success,
	}

	if entry.Duration != "" {
		fields["duration"] = entry.Duration
	}
	if entry.Error != "" {
		fields["error"] = entry.Error
	}
	for k, v := range entry.Metadata {
		fields[k] = v
	}

	logEntry := sl.logger.WithFields(fields)

	switch {
	case !entry.Success:
		logEntry.Error("Sync operation failed")
	case entry.Status == "started":
		logEntry.Debug("Sync operation started")
	default:
		logEntry.Info("Sync operation completed successfully")
	}
}

func (sl *SyncLogger) logAudit(correlationID, operation, result string, details map[string]interface{}) {
	if sl.auditLogger == nil {
		return
	}

	sl.auditLogger.WithFields(logrus.Fields{
		"correlation_id": correlationID,
		"operation":      operation,
		"result":         result,
		"details":        details,
	}).Info("Audit log entry")
}
