package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used across CLI commands. Styles render
// as plain text when the renderer's color profile is Ascii (piped output,
// markdown and JSON modes, or NO_COLOR).
type Styles struct {
	Header1   lipgloss.Style
	Header2   lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Info      lipgloss.Style
	QueryName lipgloss.Style

	// StatusSuccess and StatusFailed carry their glyph; render them with
	// String().
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
}

func newStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1:   lr.NewStyle().Bold(true).Underline(true),
		Header2:   lr.NewStyle().Bold(true),
		Bold:      lr.NewStyle().Bold(true),
		Muted:     lr.NewStyle().Faint(true),
		Success:   lr.NewStyle().Foreground(lipgloss.Color("2")),
		Warning:   lr.NewStyle().Foreground(lipgloss.Color("3")),
		Error:     lr.NewStyle().Foreground(lipgloss.Color("1")),
		Info:      lr.NewStyle().Foreground(lipgloss.Color("4")),
		QueryName: lr.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),

		StatusSuccess: lr.NewStyle().SetString("✓").Foreground(lipgloss.Color("2")),
		StatusFailed:  lr.NewStyle().SetString("✗").Foreground(lipgloss.Color("1")),
	}
}
