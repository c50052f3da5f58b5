// Package logging wraps logrus with the verbosity levels of the storesync
// CLI and helpers for the events a sync run produces.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel is the CLI verbosity, not a logrus level
type LogLevel string

const (
	LogLevelQuiet   LogLevel = "quiet"
	LogLevelNormal  LogLevel = "normal"
	LogLevelVerbose LogLevel = "verbose"
	LogLevelDebug   LogLevel = "debug"
)

// logrusLevels: quiet keeps errors, verbose adds per-entity detail, debug
// adds every SQL statement
var logrusLevels = map[LogLevel]logrus.Level{
	LogLevelQuiet:   logrus.ErrorLevel,
	LogLevelNormal:  logrus.InfoLevel,
	LogLevelVerbose: logrus.DebugLevel,
	LogLevelDebug:   logrus.TraceLevel,
}

func toLogrusLevel(level LogLevel) logrus.Level {
	if l, ok := logrusLevels[level]; ok {
		return l
	}
	return logrus.InfoLevel
}

type Logger struct {
	logger *logrus.Logger
	level  LogLevel
}

type Config struct {
	Level LogLevel
	// Output defaults to stderr so structured stdout stays parseable
	Output io.Writer
	// Format is "text" or "json"
	Format     string
	ShowCaller bool
	// LogFile, when set, receives a copy of every entry
	LogFile string
}

func NewLogger(config Config) (*Logger, error) {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	if config.LogFile != "" {
		file, err := openLogFile(config.LogFile)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(out, file)
	}

	lr := logrus.New()
	lr.SetOutput(out)
	lr.SetLevel(toLogrusLevel(config.Level))
	lr.SetReportCaller(config.ShowCaller)
	lr.SetFormatter(newFormatter(config.Format, config.ShowCaller))

	return &Logger{logger: lr, level: config.Level}, nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return file, nil
}

func newFormatter(format string, showCaller bool) logrus.Formatter {
	var caller func(*runtime.Frame) (string, string)
	if showCaller {
		caller = func(f *runtime.Frame) (string, string) {
			return f.Function + "()", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
		}
	}
	if format == "json" {
		return &logrus.JSONFormatter{TimestampFormat: time.RFC3339, CallerPrettyfier: caller}
	}
	return &logrus.TextFormatter{
		FullTimestamp:    true,
		TimestampFormat:  "2006-01-02 15:04:05",
		CallerPrettyfier: caller,
	}
}

func NewDefaultLogger() *Logger {
	logger, _ := NewLogger(Config{Level: LogLevelNormal, Format: "text"})
	return logger
}

// NewDiscardLogger drops everything
func NewDiscardLogger() *Logger {
	logger, _ := NewLogger(Config{Level: LogLevelQuiet, Output: io.Discard})
	return logger
}

func (l *Logger) GetLevel() LogLevel { return l.level }

func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	l.logger.SetLevel(toLogrusLevel(level))
}

// IsLevelEnabled is false for names outside the four CLI levels
func (l *Logger) IsLevelEnabled(level LogLevel) bool {
	lr, ok := logrusLevels[level]
	return ok && l.logger.IsLevelEnabled(lr)
}

func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.logger.WithFields(fields)
}

func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.logger.WithField(key, value)
}

func (l *Logger) Info(msg string)                           { l.logger.Info(msg) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logger.Infof(format, args...) }
func (l *Logger) Debug(msg string)                          { l.logger.Debug(msg) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.logger.Debugf(format, args...) }
func (l *Logger) Warn(msg string)                           { l.logger.Warn(msg) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logger.Warnf(format, args...) }
func (l *Logger) Error(msg string)                          { l.logger.Error(msg) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logger.Errorf(format, args...) }
