package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the status-line colors.
type Theme struct {
	Primary lipgloss.Color
	Warn    lipgloss.Color
	Error   lipgloss.Color
	Dim     lipgloss.Color
}

// DefaultTheme is the bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Warn:    lipgloss.Color("#ffb86c"),
	Error:   lipgloss.Color("#ff5555"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds the styles derived from a theme.
type Styles struct {
	Success lipgloss.Style
	Info    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Label   lipgloss.Style
	Dim     lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Success: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Info:    lipgloss.NewStyle().Foreground(t.Primary),
		Warning: lipgloss.NewStyle().Bold(true).Foreground(t.Warn),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		Label:   lipgloss.NewStyle().Bold(true),
		Dim:     lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Printer writes styled status lines. Status goes to Out; errors and
// verbose output go to Err.
type Printer struct {
	Out     io.Writer
	Err     io.Writer
	Styles  Styles
	Verbose bool
}

// NewPrinter returns a Printer with the default theme.
func NewPrinter(out, err io.Writer) *Printer {
	return &Printer{Out: out, Err: err, Styles: NewStyles(DefaultTheme)}
}

func (p *Printer) line(w io.Writer, mark lipgloss.Style, symbol, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", mark.Render(symbol), fmt.Sprintf(format, args...))
}

// Success prints a line with a check mark.
func (p *Printer) Success(format string, args ...any) {
	p.line(p.Out, p.Styles.Success, "✓", format, args...)
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	p.line(p.Out, p.Styles.Info, "ℹ", format, args...)
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...any) {
	p.line(p.Out, p.Styles.Warning, "⚠", format, args...)
}

// Error prints an error line to Err.
func (p *Printer) Error(format string, args ...any) {
	p.line(p.Err, p.Styles.Error, "✗", format, args...)
}

// Verbosef prints to Err when Verbose is set.
func (p *Printer) Verbosef(format string, args ...any) {
	if p.Verbose {
		fmt.Fprintln(p.Err, p.Styles.Dim.Render("[verbose] "+fmt.Sprintf(format, args...)))
	}
}

// Table prints aligned label/value rows.
func (p *Printer) Table(rows [][2]string) {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}
	for _, r := range rows {
		pad := strings.Repeat(" ", width-lipgloss.Width(r[0]))
		fmt.Fprintf(p.Out, "  %s%s  %s\n", p.Styles.Label.Render(r[0]), pad, r[1])
	}
}
