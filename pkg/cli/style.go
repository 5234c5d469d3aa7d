package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme of terminal output.
type Theme struct {
	Primary lipgloss.Color // Main accent color
	Dim     lipgloss.Color // Dimmed/help text color
	Warn    lipgloss.Color
	Fail    lipgloss.Color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Warn:    lipgloss.Color("#e3b341"),
	Fail:    lipgloss.Color("#ff5f5f"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Stage   lipgloss.Style
	Bar     lipgloss.Style
	Dim     lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Stage:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Width(13),
		Bar:     lipgloss.NewStyle().Foreground(t.Primary),
		Dim:     lipgloss.NewStyle().Foreground(t.Dim),
		Success: lipgloss.NewStyle().Foreground(t.Primary),
		Warning: lipgloss.NewStyle().Foreground(t.Warn),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(t.Fail),
	}
}

// DefaultStyles are the styles of DefaultTheme.
var DefaultStyles = NewStyles(DefaultTheme)

// Progress renders one progress line:
//
//	synthesizing [██████░░░░░░░░░░░░░░] 12/40 book_0012.mp3
//
// A zero total renders the stage and detail only.
func (s Styles) Progress(stage string, current, total int, detail string) string {
	var b strings.Builder
	b.WriteString(s.Stage.Render(stage))
	if total > 0 {
		b.WriteString(" ")
		b.WriteString(s.Bar.Render("[" + Bar(current, total, 20) + "]"))
		fmt.Fprintf(&b, " %d/%d", current, total)
	}
	if detail != "" {
		b.WriteString(" ")
		b.WriteString(s.Dim.Render(detail))
	}
	return b.String()
}

// Bar returns a bar of width cells with current/total of them filled.
func Bar(current, total, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}
	filled := min(max(current*width/total, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
