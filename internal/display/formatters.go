package display

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormatter renders command output in one machine readable format
type OutputFormatter interface {
	FormatValue(title string, v interface{}) (string, error)
	FormatTable(headers []string, rows [][]string) (string, error)
	FormatStatusMessage(level, message string) (string, error)
}

// tableRecords turns rows into header-keyed records
func tableRecords(headers []string, rows [][]string) []map[string]string {
	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		rec := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(row) {
				rec[header] = row[i]
			} else {
				rec[header] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}

// JSONFormatter implements OutputFormatter for JSON output
type JSONFormatter struct {
	indent string
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{indent: "  "}
}

// FormatValue marshals v on its own; the title is not part of the document
func (f *JSONFormatter) FormatValue(title string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", f.indent)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to JSON: %w", title, err)
	}
	return string(data), nil
}

func (f *JSONFormatter) FormatTable(headers []string, rows [][]string) (string, error) {
	data, err := json.MarshalIndent(tableRecords(headers, rows), "", f.indent)
	if err != nil {
		return "", fmt.Errorf("failed to marshal table to JSON: %w", err)
	}
	return string(data), nil
}

func (f *JSONFormatter) FormatStatusMessage(level, message string) (string, error) {
	data, err := json.Marshal(map[string]string{"level": strings.ToLower(level), "message": message})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// YAMLFormatter implements OutputFormatter for YAML output
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatValue(title string, v interface{}) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to YAML: %w", title, err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func (f *YAMLFormatter) FormatTable(headers []string, rows [][]string) (string, error) {
	data, err := yaml.Marshal(tableRecords(headers, rows))
	if err != nil {
		return "", fmt.Errorf("failed to marshal table to YAML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func (f *YAMLFormatter) FormatStatusMessage(level, message string) (string, error) {
	return f.FormatValue("status", map[string]string{"level": strings.ToLower(level), "message": message})
}

// CompactFormatter writes tab separated lines for scripting
type CompactFormatter struct {
	separator      string
	includeHeaders bool
}

// NewCompactFormatter creates a compact formatter with tab separators and a
// header line
func NewCompactFormatter() *CompactFormatter {
	return &CompactFormatter{separator: "\t", includeHeaders: true}
}

// FormatValue renders maps as sorted key/value lines and anything else with %v
func (f *CompactFormatter) FormatValue(title string, v interface{}) (string, error) {
	switch m := v.(type) {
	case map[string]string:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, len(keys))
		for i, k := range keys {
			lines[i] = k + f.separator + m[k]
		}
		return strings.Join(lines, "\n"), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func (f *CompactFormatter) FormatTable(headers []string, rows [][]string) (string, error) {
	var lines []string
	if f.includeHeaders && len(headers) > 0 {
		lines = append(lines, strings.Join(headers, f.separator))
	}
	for _, row := range rows {
		lines = append(lines, strings.Join(row, f.separator))
	}
	return strings.Join(lines, "\n"), nil
}

func (f *CompactFormatter) FormatStatusMessage(level, message string) (string, error) {
	return strings.ToUpper(level) + f.separator + message, nil
}

// FormatterRegistry maps output formats to their formatters
type FormatterRegistry struct {
	formatters map[OutputFormat]OutputFormatter
}

// NewFormatterRegistry creates a registry with the built-in formatters
func NewFormatterRegistry() *FormatterRegistry {
	return &FormatterRegistry{
		formatters: map[OutputFormat]OutputFormatter{
			FormatJSON:    NewJSONFormatter(),
			FormatYAML:    NewYAMLFormatter(),
			FormatCompact: NewCompactFormatter(),
		},
	}
}

// Register adds or replaces the formatter for format
func (r *FormatterRegistry) Register(format OutputFormat, formatter OutputFormatter) {
	r.formatters[format] = formatter
}

// GetFormatter looks up the formatter for format
func (r *FormatterRegistry) GetFormatter(format OutputFormat) (OutputFormatter, bool) {
	formatter, ok := r.formatters[format]
	return formatter, ok
}
