package prompt

import "github.com/charmbracelet/lipgloss"

// Palette shared by the prompt models and the CLI summary.
var (
	Accent      = lipgloss.Color("#8BC34A")
	Primary     = lipgloss.Color("#2196F3")
	Muted       = lipgloss.Color("#6c7a89")
	Destructive = lipgloss.Color("#e53935")
	Warning     = lipgloss.Color("#FFC107")
)

// Styles used by the prompt views.
var (
	LabelStyle    = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	CursorStyle   = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	SelectedStyle = lipgloss.NewStyle().Foreground(Accent)
	HintStyle     = lipgloss.NewStyle().Foreground(Muted).Italic(true)
	ErrorStyle    = lipgloss.NewStyle().Foreground(Destructive)
	WarningStyle  = lipgloss.NewStyle().Foreground(Warning)
)
