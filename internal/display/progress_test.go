package display

import (
	"bytes"
	"strings"
	"testing"
)

func TestProgressBarLineMode(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBar("backup", &buf, nil, PlainTextTheme())

	report := pb.Callback()
	report("Exporting CustomerEntity", 10)
	report("Exporting CustomerEntity", 10)
	report("Exporting OrderEntity", 5)
	report("Uploading", 150)
	pb.Finish("Done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"[ 10%] Exporting CustomerEntity",
		"[ 10%] Exporting OrderEntity",
		"[100%] Uploading",
		"[100%] Done",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %q", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	if pb.Percent() != 100 {
		t.Errorf("Percent() = %d, want 100", pb.Percent())
	}
}

func TestProgressBarStopsAfterFinish(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBar("", &buf, nil, PlainTextTheme())

	pb.Update(40, "Importing")
	pb.Abort("Failed")
	n := buf.Len()
	pb.Update(90, "late update")
	pb.Finish("ignored")

	if buf.Len() != n {
		t.Errorf("bar kept drawing after Abort: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "[ 40%] Failed") {
		t.Errorf("expected abort line, got %q", buf.String())
	}
}

func TestDisabledProgressBar(t *testing.T) {
	pb := newDisabledProgressBar()
	pb.Callback()("anything", 50)
	pb.Finish("done")
	if pb.Percent() != 100 {
		t.Errorf("disabled bar should still track percent, got %d", pb.Percent())
	}
}
