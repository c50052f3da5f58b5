package display

import (
	"strings"
	"testing"
)

func TestFormatters(t *testing.T) {
	headers := []string{"sheet", "added"}
	rows := [][]string{{"CustomerEntity", "1"}}

	tests := []struct {
		format OutputFormat
		table  string
		status string
	}{
		{
			format: FormatJSON,
			table:  "[\n  {\n    \"added\": \"1\",\n    \"sheet\": \"CustomerEntity\"\n  }\n]",
			status: `{"level":"info","message":"hello"}`,
		},
		{
			format: FormatYAML,
			table:  "",
			status: "level: info\nmessage: hello",
		},
		{
			format: FormatCompact,
			table:  "sheet\tadded\nCustomerEntity\t1",
			status: "INFO\thello",
		},
	}

	registry := NewFormatterRegistry()
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f, ok := registry.GetFormatter(tt.format)
			if !ok {
				t.Fatalf("no formatter for %s", tt.format)
			}

			table, err := f.FormatTable(headers, rows)
			if err != nil {
				t.Fatalf("FormatTable() error = %v", err)
			}
			if tt.table == "" {
				if !strings.Contains(table, "sheet: CustomerEntity") || !strings.Contains(table, `added: "1"`) {
					t.Errorf("FormatTable() = %q", table)
				}
			} else if table != tt.table {
				t.Errorf("FormatTable() = %q, want %q", table, tt.table)
			}

			status, err := f.FormatStatusMessage("INFO", "hello")
			if err != nil {
				t.Fatalf("FormatStatusMessage() error = %v", err)
			}
			if status != tt.status {
				t.Errorf("FormatStatusMessage() = %q, want %q", status, tt.status)
			}
		})
	}

	if _, ok := registry.GetFormatter(FormatTable); ok {
		t.Error("table output is rendered by the service, not a formatter")
	}
}

func TestFormatValueErrors(t *testing.T) {
	_, err := NewJSONFormatter().FormatValue("bad", make(chan int))
	if err == nil || !strings.Contains(err.Error(), "bad") {
		t.Errorf("expected marshal error naming the value, got %v", err)
	}
}

func TestCompactFormatValue(t *testing.T) {
	got, _ := NewCompactFormatter().FormatValue("", map[string]string{"b": "2", "a": "1"})
	if got != "a\t1\nb\t2" {
		t.Errorf("FormatValue() = %q", got)
	}
}
