package confirmation

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
		valid bool
	}{
		{"y", true, true},
		{"YES\n", true, true},
		{"n", false, true},
		{"no", false, true},
		{"", false, true},
		{"  \n", false, true},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		ok, valid := ParseAnswer(tt.input)
		if ok != tt.ok || valid != tt.valid {
			t.Errorf("ParseAnswer(%q) = (%v, %v), want (%v, %v)", tt.input, ok, valid, tt.ok, tt.valid)
		}
	}
}

func TestConfirmAutoApprove(t *testing.T) {
	var out bytes.Buffer
	service := NewConfirmationService(strings.NewReader(""), &out)

	ok, err := service.Confirm(Request{Action: "Replace rows", Consequences: []string{"existing rows are overwritten"}}, true)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if !ok {
		t.Error("Expected auto-approval")
	}
	if !strings.Contains(out.String(), "existing rows are overwritten") {
		t.Errorf("Expected consequences to be listed, got: %s", out.String())
	}
}

func TestConfirmReadsAnswer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"no", "n\n", false},
		{"default is no", "\n", false},
		{"eof without newline", "yes", true},
		{"empty input", "", false},
		{"retry after invalid", "what\ny\n", true},
		{"gives up after repeated invalid input", "a\nb\nc\ny\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			service := NewConfirmationService(strings.NewReader(tt.input), &out)

			ok, err := service.Confirm(Request{Action: "Delete backups"}, false)
			if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if ok != tt.want {
				t.Errorf("Confirm() = %v, want %v (output: %s)", ok, tt.want, out.String())
			}
		})
	}
}
