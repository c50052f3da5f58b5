package display

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

type displayService struct {
	config            *DisplayConfig
	colorSystem       ColorSystem
	theme             ColorTheme
	writer            io.Writer
	formatterRegistry *FormatterRegistry
}

// NewDisplayService creates a new display service with the given configuration
func NewDisplayService(config *DisplayConfig) DisplayService {
	if config == nil {
		config = DefaultDisplayConfig()
	}
	config.SetDefaults()

	ds := &displayService{
		config:            config,
		writer:            config.Writer,
		formatterRegistry: NewFormatterRegistry(),
	}
	ds.resetColors()
	return ds
}

func (ds *displayService) resetColors() {
	theme := ds.config.GetColorTheme()
	if ds.config.Theme == string(ThemeAuto) && !hasDarkBackground(ds.writer) {
		theme = LightColorTheme()
	}
	if !ds.config.IsColorEnabled() {
		theme = PlainTextTheme()
	}
	ds.theme = theme
	ds.colorSystem = NewColorSystem(theme, ds.writer)
}

func (ds *displayService) colorize(text string, clr Color) string {
	if !ds.config.IsColorEnabled() {
		return text
	}
	return ds.colorSystem.Colorize(text, clr)
}

func (ds *displayService) formatter() (OutputFormatter, bool) {
	if ds.config.OutputFormat == string(FormatTable) {
		return nil, false
	}
	return ds.formatterRegistry.GetFormatter(OutputFormat(ds.config.OutputFormat))
}

// PrintHeader prints a formatted header. Structured output has no headers.
func (ds *displayService) PrintHeader(title string) {
	if ds.config.QuietMode || ds.config.OutputFormat != string(FormatTable) {
		return
	}

	separator := strings.Repeat("=", len(title)+4)
	fmt.Fprint(ds.writer, ds.colorize(fmt.Sprintf("\n%s\n  %s  \n%s\n", separator, title, separator), ds.theme.Primary))
}

// PrintTable prints rows in the configured format. Structured formats are
// written even in quiet mode since scripts depend on them.
func (ds *displayService) PrintTable(headers []string, rows [][]string) {
	if f, ok := ds.formatter(); ok {
		out, err := f.FormatTable(headers, rows)
		if err != nil {
			fmt.Fprintf(ds.writer, "Error formatting table: %v\n", err)
			return
		}
		fmt.Fprintln(ds.writer, out)
		return
	}
	if ds.config.QuietMode {
		return
	}

	table := NewTableFormatter(ds.colorSystem, ds.theme)
	table.SetStyle(GetTableStyleByName(ds.config.TableStyle))
	if limit := ds.config.MaxTableWidth; limit > 0 {
		if tw := getTerminalWidth(); tw == 0 || tw > limit {
			table.SetMaxWidth(limit)
		}
	}
	table.SetHeaders(headers)
	for _, row := range rows {
		table.AddRow(row)
	}
	table.RenderTo(ds.writer)
}

// PrintValue writes v as a structured document, or as aligned key/value
// lines when v is a map[string]string and output is a table
func (ds *displayService) PrintValue(title string, v interface{}) {
	if f, ok := ds.formatter(); ok {
		out, err := f.FormatValue(title, v)
		if err != nil {
			fmt.Fprintf(ds.writer, "Error formatting %s: %v\n", title, err)
			return
		}
		fmt.Fprintln(ds.writer, out)
		return
	}
	if ds.config.QuietMode {
		return
	}

	if title != "" {
		fmt.Fprintln(ds.writer, ds.colorize(fmt.Sprintf("--- %s ---", title), ds.theme.Highlight))
	}
	fields, ok := v.(map[string]string)
	if !ok {
		fmt.Fprintf(ds.writer, "%v\n", v)
		return
	}

	keys := make([]string, 0, len(fields))
	width := 0
	for k := range fields {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(ds.writer, "  %-*s  %s\n", width, k, fields[k])
	}
}

func (ds *displayService) Success(message string) {
	if ds.config.QuietMode {
		return
	}
	ds.printStatusMessage("SUCCESS", message, ds.theme.Success)
}

func (ds *displayService) Warning(message string) {
	ds.printStatusMessage("WARNING", message, ds.theme.Warning)
}

func (ds *displayService) Error(message string) {
	ds.printStatusMessage("ERROR", message, ds.theme.Error)
}

func (ds *displayService) Info(message string) {
	if ds.config.QuietMode {
		return
	}
	ds.printStatusMessage("INFO", message, ds.theme.Info)
}

// NewSyncProgress draws on stderr when the main writer is stdout so piped
// structured output stays clean
func (ds *displayService) NewSyncProgress(title string) *ProgressBar {
	if !ds.config.IsProgressEnabled() {
		return newDisabledProgressBar()
	}
	out := ds.writer
	if out == os.Stdout {
		out = os.Stderr
	}
	return NewProgressBar(title, out, ds.colorSystem, ds.theme)
}

func (ds *displayService) SetOutput(writer io.Writer) {
	ds.writer = writer
	ds.config.Writer = writer
	ds.resetColors()
}

func (ds *displayService) GetConfig() *DisplayConfig {
	return ds.config
}

func (ds *displayService) printStatusMessage(level, message string, clr Color) {
	if ds.config.IsStructured() {
		f, _ := ds.formatter()
		out, err := f.FormatStatusMessage(level, message)
		if err == nil {
			// status lines go to stderr so they do not corrupt the document
			w := ds.writer
			if w == os.Stdout {
				w = os.Stderr
			}
			fmt.Fprintln(w, out)
		}
		return
	}

	prefix := ds.colorize(fmt.Sprintf("[%s]", level), clr)
	fmt.Fprintf(ds.writer, "%s %s\n", prefix, message)
}
