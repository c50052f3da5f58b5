package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// maxLoggedSQL bounds statement text in log entries; bulk upserts of a
// seventeen-sheet import get long
const maxLoggedSQL = 200

func event(operation string, duration time.Duration) logrus.Fields {
	fields := logrus.Fields{"operation": operation}
	if duration > 0 {
		fields["duration"] = duration.String()
	}
	return fields
}

// LogEntityExport records one sheet written to the workbook
func (l *Logger) LogEntityExport(sheet string, rows int, duration time.Duration, err error) {
	fields := event("entity_export", duration)
	fields["sheet"] = sheet
	fields["rows"] = rows
	entry := l.logger.WithFields(fields)
	if err != nil {
		entry.WithError(err).Error("Entity export failed")
		return
	}
	entry.Debug("Entity exported")
}

// LogEntityImport records the counters of one sheet; any failed row raises
// the entry to a warning
func (l *Logger) LogEntityImport(sheet string, added, skipped, failed int, duration time.Duration) {
	fields := event("entity_import", duration)
	fields["sheet"] = sheet
	fields["added"] = added
	fields["skipped"] = skipped
	fields["failed"] = failed
	entry := l.logger.WithFields(fields)
	if failed > 0 {
		entry.Warn("Entity imported with failures")
		return
	}
	entry.Debug("Entity imported")
}

func (l *Logger) LogRowFailure(sheet string, row int, err error) {
	entry := l.logger.WithFields(logrus.Fields{
		"operation": "row_import",
		"sheet":     sheet,
		"row":       row,
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn("Row skipped")
}

// LogRemoteTransfer records an upload or download; direction becomes the
// operation suffix
func (l *Logger) LogRemoteTransfer(direction, object string, size int64, duration time.Duration, err error) {
	fields := event("remote_"+direction, duration)
	fields["object"] = object
	fields["size"] = size
	entry := l.logger.WithFields(fields)
	if err != nil {
		entry.WithError(err).Error("Remote transfer failed")
		return
	}
	entry.Info("Remote transfer completed")
}

// LogSchemaValidation emits each non-fatal finding as its own warning
func (l *Logger) LogSchemaValidation(version int, warnings []string, err error) {
	entry := l.logger.WithFields(logrus.Fields{
		"operation":      "schema_validation",
		"schema_version": version,
		"warnings":       len(warnings),
	})
	if err != nil {
		entry.WithError(err).Error("Workbook failed validation")
		return
	}
	for _, w := range warnings {
		entry.Warn(w)
	}
	entry.Debug("Workbook validated")
}

func (l *Logger) LogDatabaseConnection(host, database string, success bool, duration time.Duration, err error) {
	fields := event("database_connection", duration)
	fields["host"] = host
	fields["database"] = database
	fields["success"] = success
	entry := l.logger.WithFields(fields)
	if success {
		entry.Info("Connected to store database")
		return
	}
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error("Store database connection failed")
}

// LogSQLExecution logs failures always and successes only at debug level
func (l *Logger) LogSQLExecution(sql string, duration time.Duration, rowsAffected int64, err error) {
	fields := event("sql_execution", duration)
	fields["rows_affected"] = rowsAffected
	if len(sql) > maxLoggedSQL {
		fields["sql"] = sql[:maxLoggedSQL] + "..."
		fields["sql_length"] = len(sql)
	} else {
		fields["sql"] = sql
	}
	entry := l.logger.WithFields(fields)
	switch {
	case err != nil:
		entry.WithError(err).Error("SQL execution failed")
	case l.level == LogLevelDebug:
		entry.Trace("SQL executed")
	}
}

// LogOperationStart logs at debug level and returns the completion logger
func (l *Logger) LogOperationStart(operation string, fields map[string]interface{}) func(error) {
	start := time.Now()
	base := logrus.Fields{"operation": operation}
	for k, v := range fields {
		base[k] = v
	}
	l.logger.WithFields(base).WithField("status", "started").Debug("Operation started")

	return func(err error) {
		entry := l.logger.WithFields(base).WithFields(logrus.Fields{
			"status":   "completed",
			"duration": time.Since(start).String(),
			"success":  err == nil,
		})
		if err != nil {
			entry.WithError(err).Error("Operation failed")
			return
		}
		entry.Info("Operation completed")
	}
}
