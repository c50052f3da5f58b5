package display

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// ColorSystem applies theme colors when the output supports them
type ColorSystem interface {
	Colorize(text string, color Color) string
	Sprintf(color Color, format string, args ...interface{}) string
	IsColorSupported() bool
	GetTheme() ColorTheme
}

type colorSystem struct {
	theme     ColorTheme
	supported bool
}

// NewColorSystem emits colors only when out is a terminal whose
// environment allows them
func NewColorSystem(theme ColorTheme, out io.Writer) ColorSystem {
	return &colorSystem{theme: theme, supported: detectColorSupport(out)}
}

// detectColorSupport honours NO_COLOR, TERM=dumb and FORCE_COLOR
func detectColorSupport(out io.Writer) bool {
	switch {
	case os.Getenv("NO_COLOR") != "", os.Getenv("TERM") == "dumb":
		return false
	case os.Getenv("FORCE_COLOR") != "":
		return true
	}
	f, ok := out.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return false
	}
	return termenv.NewOutput(f).EnvColorProfile() != termenv.Ascii
}

// hasDarkBackground asks the terminal behind out; anything that is not a
// terminal counts as dark
func hasDarkBackground(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return true
	}
	return termenv.NewOutput(f).HasDarkBackground()
}

func (cs *colorSystem) Colorize(text string, clr Color) string {
	if !cs.supported || clr == color.Reset {
		return text
	}
	c := color.New(clr)
	// fatih/color decides from os.Stdout on its own, which is not
	// necessarily where this system writes
	c.EnableColor()
	return c.Sprint(text)
}

func (cs *colorSystem) Sprintf(clr Color, format string, args ...interface{}) string {
	return cs.Colorize(fmt.Sprintf(format, args...), clr)
}

func (cs *colorSystem) IsColorSupported() bool { return cs.supported }

func (cs *colorSystem) GetTheme() ColorTheme { return cs.theme }

func DarkColorTheme() ColorTheme {
	return ColorTheme{
		Primary:   color.FgHiBlue,
		Success:   color.FgHiGreen,
		Warning:   color.FgHiYellow,
		Error:     color.FgHiRed,
		Info:      color.FgCyan,
		Muted:     color.FgWhite,
		Highlight: color.FgHiCyan,
	}
}

func LightColorTheme() ColorTheme {
	return ColorTheme{
		Primary:   color.FgBlue,
		Success:   color.FgGreen,
		Warning:   color.FgYellow,
		Error:     color.FgRed,
		Info:      color.FgCyan,
		Muted:     color.FgMagenta,
		Highlight: color.FgBlue,
	}
}

// HighContrastColorTheme differs from dark in its brighter info and
// highlight colors
func HighContrastColorTheme() ColorTheme {
	theme := DarkColorTheme()
	theme.Info = color.FgHiCyan
	theme.Highlight = color.FgHiWhite
	return theme
}

// PlainTextTheme leaves every message unstyled
func PlainTextTheme() ColorTheme {
	return ColorTheme{}
}

// GetThemeByName resolves "auto" to dark; NewDisplayService probes the
// terminal instead
func GetThemeByName(name string) ColorTheme {
	switch ThemeName(name) {
	case ThemeLight:
		return LightColorTheme()
	case ThemeHighContrast:
		return HighContrastColorTheme()
	case "plain", "none":
		return PlainTextTheme()
	}
	return DarkColorTheme()
}
