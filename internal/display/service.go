// Package display renders command output: status lines, tables, structured
// JSON or YAML documents and the sync progress bar.
package display

import (
	"io"

	"github.com/fatih/color"
)

// DisplayService is what commands write through. In json and yaml formats
// only PrintValue writes to the output; status lines go to stderr.
type DisplayService interface {
	PrintHeader(title string)
	PrintTable(headers []string, rows [][]string)
	// PrintValue writes v as a document in the configured structured format,
	// or as key/value lines for table output
	PrintValue(title string, v interface{})

	Success(message string)
	Warning(message string)
	Error(message string)
	Info(message string)

	// NewSyncProgress draws nothing when progress is disabled
	NewSyncProgress(title string) *ProgressBar

	SetOutput(writer io.Writer)
	GetConfig() *DisplayConfig
}

type OutputFormat string

const (
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatCompact OutputFormat = "compact"
)

// Color is a foreground attribute; the zero value leaves text unstyled
type Color = color.Attribute

// ColorTheme assigns a color to each kind of message
type ColorTheme struct {
	Primary   Color
	Success   Color
	Warning   Color
	Error     Color
	Info      Color
	Muted     Color
	Highlight Color
}
