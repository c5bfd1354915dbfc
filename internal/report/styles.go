package report

import "github.com/charmbracelet/lipgloss"

// Palette used by the terminal summary.
var (
	Accent  = lipgloss.Color("#7D56F4")
	Success = lipgloss.Color("#04B575")
	Muted   = lipgloss.Color("#626262")
)

// Styles groups the lipgloss styles used for terminal output.
type Styles struct {
	Rule  lipgloss.Style
	Title lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style
	Note  lipgloss.Style
}

// DefaultStyles returns the styles used by Summary.
func DefaultStyles() Styles {
	return Styles{
		Rule: lipgloss.NewStyle().
			Foreground(Muted),

		Title: lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true),

		Label: lipgloss.NewStyle().
			Foreground(Muted).
			Width(16),

		Value: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Note: lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true),
	}
}
