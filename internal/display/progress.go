package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// ProgressBar draws the percentage of one sync operation. On a terminal it
// redraws a single line; elsewhere it writes one line per new message.
type ProgressBar struct {
	title       string
	percent     int
	message     string
	width       int
	writer      io.Writer
	colorSys    ColorSystem
	theme       ColorTheme
	interactive bool
	disabled    bool
	lastLine    string
	done        bool
	mu          sync.Mutex
}

// NewProgressBar creates a progress bar writing to writer
func NewProgressBar(title string, writer io.Writer, colorSys ColorSystem, theme ColorTheme) *ProgressBar {
	return &ProgressBar{
		title:       title,
		width:       30,
		writer:      writer,
		colorSys:    colorSys,
		theme:       theme,
		interactive: isTerminal(writer),
	}
}

func newDisabledProgressBar() *ProgressBar {
	return &ProgressBar{writer: io.Discard, disabled: true}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// Callback adapts the bar to the (message, percent) progress sink used by
// sync operations
func (pb *ProgressBar) Callback() func(message string, percent int) {
	return func(message string, percent int) {
		pb.Update(percent, message)
	}
}

// Update moves the bar to percent. Lower values than already shown are
// ignored so the bar never moves backwards.
func (pb *ProgressBar) Update(percent int, message string) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.done {
		return
	}
	if percent > 100 {
		percent = 100
	}
	if percent > pb.percent {
		pb.percent = percent
	}
	if message != "" {
		pb.message = message
	}
	pb.render()
}

// Percent returns the value currently shown
func (pb *ProgressBar) Percent() int {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.percent
}

// Finish fills the bar and ends the line
func (pb *ProgressBar) Finish(finalMessage string) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.done {
		return
	}
	pb.percent = 100
	if finalMessage != "" {
		pb.message = finalMessage
	}
	pb.render()
	pb.end()
}

// Abort ends the line where the bar stopped
func (pb *ProgressBar) Abort(message string) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.done {
		return
	}
	if message != "" {
		pb.message = message
	}
	pb.render()
	pb.end()
}

func (pb *ProgressBar) end() {
	pb.done = true
	if pb.interactive && !pb.disabled {
		fmt.Fprintln(pb.writer)
	}
}

// render must be called with mu held
func (pb *ProgressBar) render() {
	if pb.disabled {
		return
	}

	if !pb.interactive {
		line := fmt.Sprintf("[%3d%%] %s", pb.percent, pb.message)
		if line == pb.lastLine {
			return
		}
		pb.lastLine = line
		fmt.Fprintln(pb.writer, line)
		return
	}

	filledWidth := pb.width * pb.percent / 100
	filled := strings.Repeat("█", filledWidth)
	empty := strings.Repeat("░", pb.width-filledWidth)
	if pb.colorSys != nil && pb.colorSys.IsColorSupported() {
		filled = pb.colorSys.Colorize(filled, pb.theme.Success)
		empty = pb.colorSys.Colorize(empty, pb.theme.Muted)
	}

	title := pb.title
	if title != "" {
		title += " "
	}
	// pad to wipe a longer previous message
	fmt.Fprintf(pb.writer, "\r%s[%s%s] %3d%% %-40s", title, filled, empty, pb.percent, pb.message)
}
