package display

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// DisplayConfig is the display section of the config file plus the
// --format, --theme, --no-color and --no-progress flags
type DisplayConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled" yaml:"color_enabled"`
	Theme        string `mapstructure:"theme" yaml:"theme"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`
	ShowProgress bool   `mapstructure:"show_progress" yaml:"show_progress"`

	VerboseMode bool `mapstructure:"verbose" yaml:"verbose"`
	QuietMode   bool `mapstructure:"quiet" yaml:"quiet"`

	TableStyle    string `mapstructure:"table_style" yaml:"table_style"`
	MaxTableWidth int    `mapstructure:"max_table_width" yaml:"max_table_width"`

	Writer io.Writer `mapstructure:"-" yaml:"-"`
}

// ThemeName represents available color themes
type ThemeName string

const (
	ThemeDark         ThemeName = "dark"
	ThemeLight        ThemeName = "light"
	ThemeHighContrast ThemeName = "high-contrast"
	ThemeAuto         ThemeName = "auto"
)

// TableStyleName represents available table styles
type TableStyleName string

const (
	TableStyleDefault TableStyleName = "default"
	TableStyleRounded TableStyleName = "rounded"
	TableStyleMinimal TableStyleName = "minimal"
)

const (
	defaultTableWidth = 120
	minTableWidth     = 40
	maxTableWidth     = 300
)

func DefaultDisplayConfig() *DisplayConfig {
	dc := &DisplayConfig{ColorEnabled: true, ShowProgress: true}
	dc.SetDefaults()
	return dc
}

// allowed lists the accepted names per option, in the order shown to the
// operator
var allowed = []struct {
	option string
	value  func(*DisplayConfig) string
	names  []string
}{
	{"theme", func(dc *DisplayConfig) string { return dc.Theme },
		[]string{string(ThemeAuto), string(ThemeDark), string(ThemeLight), string(ThemeHighContrast)}},
	{"output format", func(dc *DisplayConfig) string { return dc.OutputFormat },
		[]string{string(FormatTable), string(FormatJSON), string(FormatYAML), string(FormatCompact)}},
	{"table style", func(dc *DisplayConfig) string { return dc.TableStyle },
		[]string{string(TableStyleDefault), string(TableStyleRounded), string(TableStyleMinimal)}},
}

func (dc *DisplayConfig) Validate() error {
	var problems []string
	for _, a := range allowed {
		if v := a.value(dc); !slices.Contains(a.names, v) {
			problems = append(problems, fmt.Sprintf("invalid %s %q, use one of %s", a.option, v, strings.Join(a.names, ", ")))
		}
	}
	if dc.MaxTableWidth < minTableWidth || dc.MaxTableWidth > maxTableWidth {
		problems = append(problems, fmt.Sprintf("max table width %d is outside %d..%d", dc.MaxTableWidth, minTableWidth, maxTableWidth))
	}
	if dc.VerboseMode && dc.QuietMode {
		problems = append(problems, "verbose and quiet are mutually exclusive")
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

// SetDefaults fills options the config file left empty
func (dc *DisplayConfig) SetDefaults() {
	if dc.Theme == "" {
		dc.Theme = string(ThemeAuto)
	}
	if dc.OutputFormat == "" {
		dc.OutputFormat = string(FormatTable)
	}
	if dc.TableStyle == "" {
		dc.TableStyle = string(TableStyleDefault)
	}
	if dc.MaxTableWidth == 0 {
		dc.MaxTableWidth = defaultTableWidth
	}
	if dc.Writer == nil {
		dc.Writer = os.Stdout
	}
}

func (dc *DisplayConfig) GetColorTheme() ColorTheme {
	return GetThemeByName(dc.Theme)
}

// IsColorEnabled is false in quiet mode regardless of the setting
func (dc *DisplayConfig) IsColorEnabled() bool {
	return dc.ColorEnabled && !dc.QuietMode
}

// IsProgressEnabled: the bar is only drawn for table output
func (dc *DisplayConfig) IsProgressEnabled() bool {
	return dc.ShowProgress && !dc.QuietMode && dc.OutputFormat == string(FormatTable)
}

// IsStructured reports whether output is machine readable
func (dc *DisplayConfig) IsStructured() bool {
	return dc.OutputFormat == string(FormatJSON) || dc.OutputFormat == string(FormatYAML)
}
