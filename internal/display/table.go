package display

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// TableFormatter builds a bordered text table
type TableFormatter interface {
	SetHeaders(headers []string)
	AddRow(row []string)
	SetColumnAlignment(column int, alignment Alignment)
	SetStyle(style TableStyle)
	SetMaxWidth(width int)
	Render() string
	RenderTo(writer io.Writer)
}

// Alignment represents column alignment options
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// TableStyle defines the visual style of a table
type TableStyle struct {
	Name    string
	Border  BorderStyle
	Padding int
}

// BorderStyle defines table border characters. An empty Horizontal means no
// border lines at all.
type BorderStyle struct {
	TopLeft, TopRight, BottomLeft, BottomRight string
	Horizontal, Vertical                       string
	Cross, TopTee, BottomTee, LeftTee, RightTee string
}

var (
	ASCIIBorderStyle = BorderStyle{
		TopLeft: "+", TopRight: "+", BottomLeft: "+", BottomRight: "+",
		Horizontal: "-", Vertical: "|",
		Cross: "+", TopTee: "+", BottomTee: "+", LeftTee: "+", RightTee: "+",
	}

	RoundedBorderStyle = BorderStyle{
		TopLeft: "╭", TopRight: "╮", BottomLeft: "╰", BottomRight: "╯",
		Horizontal: "─", Vertical: "│",
		Cross: "┼", TopTee: "┬", BottomTee: "┴", LeftTee: "├", RightTee: "┤",
	}

	DefaultTableStyle = TableStyle{Name: string(TableStyleDefault), Border: ASCIIBorderStyle, Padding: 1}
	RoundedTableStyle = TableStyle{Name: string(TableStyleRounded), Border: RoundedBorderStyle, Padding: 1}
	MinimalTableStyle = TableStyle{Name: string(TableStyleMinimal), Padding: 1}
)

// GetTableStyleByName falls back to the default style for unknown names
func GetTableStyleByName(name string) TableStyle {
	switch name {
	case string(TableStyleRounded):
		return RoundedTableStyle
	case string(TableStyleMinimal):
		return MinimalTableStyle
	default:
		return DefaultTableStyle
	}
}

type tableFormatter struct {
	headers     []string
	rows        [][]string
	alignments  map[int]Alignment
	style       TableStyle
	maxWidth    int
	colorSystem ColorSystem
	theme       ColorTheme
}

// NewTableFormatter creates a table limited to the terminal width
func NewTableFormatter(colorSystem ColorSystem, theme ColorTheme) TableFormatter {
	return &tableFormatter{
		alignments:  make(map[int]Alignment),
		style:       DefaultTableStyle,
		maxWidth:    getTerminalWidth(),
		colorSystem: colorSystem,
		theme:       theme,
	}
}

func (tf *tableFormatter) SetHeaders(headers []string) {
	tf.headers = headers
}

func (tf *tableFormatter) AddRow(row []string) {
	tf.rows = append(tf.rows, row)
}

func (tf *tableFormatter) SetColumnAlignment(column int, alignment Alignment) {
	tf.alignments[column] = alignment
}

func (tf *tableFormatter) SetStyle(style TableStyle) {
	tf.style = style
}

// SetMaxWidth caps the rendered width; zero or less disables the cap
func (tf *tableFormatter) SetMaxWidth(width int) {
	tf.maxWidth = width
}

// Render returns the formatted table as a string
func (tf *tableFormatter) Render() string {
	if len(tf.headers) == 0 && len(tf.rows) == 0 {
		return ""
	}

	widths := tf.adjustForMaxWidth(tf.columnWidths())
	b := tf.style.Border

	var out strings.Builder
	line := func(left, mid, right string) {
		if b.Horizontal == "" {
			return
		}
		out.WriteString(left)
		for i, w := range widths {
			out.WriteString(strings.Repeat(b.Horizontal, w+tf.style.Padding*2))
			if i < len(widths)-1 {
				out.WriteString(mid)
			}
		}
		out.WriteString(right)
		out.WriteString("\n")
	}

	line(b.TopLeft, b.TopTee, b.TopRight)
	if len(tf.headers) > 0 {
		out.WriteString(tf.renderRow(tf.headers, widths, true))
		line(b.LeftTee, b.Cross, b.RightTee)
	}
	for _, row := range tf.rows {
		out.WriteString(tf.renderRow(row, widths, false))
	}
	line(b.BottomLeft, b.BottomTee, b.BottomRight)

	return out.String()
}

func (tf *tableFormatter) RenderTo(writer io.Writer) {
	fmt.Fprint(writer, tf.Render())
}

// columnWidths returns the content width of each column
func (tf *tableFormatter) columnWidths() []int {
	cols := len(tf.headers)
	for _, row := range tf.rows {
		if len(row) > cols {
			cols = len(row)
		}
	}

	widths := make([]int, cols)
	measure := func(row []string) {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	measure(tf.headers)
	for _, row := range tf.rows {
		measure(row)
	}
	return widths
}

// adjustForMaxWidth shrinks the widest columns until the table fits
func (tf *tableFormatter) adjustForMaxWidth(widths []int) []int {
	if tf.maxWidth <= 0 || len(widths) == 0 {
		return widths
	}

	total := func() int {
		sum := 0
		for _, w := range widths {
			sum += w + tf.style.Padding*2
		}
		if tf.style.Border.Vertical != "" {
			sum += len(widths) + 1
		}
		return sum
	}

	const minWidth = 4
	for total() > tf.maxWidth {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minWidth {
			break
		}
		widths[widest]--
	}
	return widths
}

func (tf *tableFormatter) renderRow(row []string, widths []int, isHeader bool) string {
	var out strings.Builder
	sep := tf.style.Border.Vertical
	if sep == "" {
		sep = " "
	} else {
		out.WriteString(sep)
	}

	pad := strings.Repeat(" ", tf.style.Padding)
	for i, width := range widths {
		var cell string
		if i < len(row) {
			cell = row[i]
		}
		out.WriteString(pad)
		out.WriteString(tf.formatCell(cell, width, tf.alignments[i], isHeader))
		out.WriteString(pad)
		if i < len(widths)-1 || tf.style.Border.Vertical != "" {
			out.WriteString(sep)
		}
	}
	return strings.TrimRight(out.String(), " ") + "\n"
}

// formatCell truncates and aligns content to width, then colors it so
// escape codes never count toward the width
func (tf *tableFormatter) formatCell(content string, width int, alignment Alignment, isHeader bool) string {
	if utf8.RuneCountInString(content) > width {
		runes := []rune(content)
		if width > 3 {
			content = string(runes[:width-3]) + "..."
		} else {
			content = string(runes[:width])
		}
	}

	gap := strings.Repeat(" ", width-utf8.RuneCountInString(content))
	if isHeader && tf.colorSystem != nil && tf.colorSystem.IsColorSupported() {
		content = tf.colorSystem.Colorize(content, tf.theme.Primary)
	}
	if alignment == AlignRight {
		return gap + content
	}
	return content + gap
}

// getTerminalWidth returns the width of the terminal on stdout, or zero
// when stdout is not a terminal
func getTerminalWidth() int {
	width, _, err := term.GetSize(1)
	if err != nil {
		return 0
	}
	return width
}
