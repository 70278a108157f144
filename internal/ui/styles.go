package ui

import "github.com/charmbracelet/lipgloss"

// ANSI palette indexes, so output follows the terminal's theme.
var (
	accent  = lipgloss.Color("6") // cyan
	info    = lipgloss.Color("4") // blue
	violet  = lipgloss.Color("5") // magenta
	danger  = lipgloss.Color("1") // red
	caution = lipgloss.Color("3") // yellow
	good    = lipgloss.Color("2") // green
	dim     = lipgloss.Color("8") // gray
	light   = lipgloss.Color("15")
	dark    = lipgloss.Color("0")
)

// Entry parts.
var (
	TimestampStyle  = lipgloss.NewStyle().Foreground(accent)
	OriginStyle     = lipgloss.NewStyle().Foreground(violet)
	InfoLevelStyle  = lipgloss.NewStyle().Foreground(info)
	ErrorLevelStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)
	HighlightStyle  = lipgloss.NewStyle().Background(caution).Foreground(dark).Bold(true)
)

// CLI messages and tables.
var (
	StatusStyle  = lipgloss.NewStyle().Foreground(dim).Italic(true)
	WarningStyle = lipgloss.NewStyle().Foreground(caution)
	SuccessStyle = lipgloss.NewStyle().Foreground(good)
	MutedStyle   = lipgloss.NewStyle().Foreground(dim)
	LabelStyle   = lipgloss.NewStyle().Foreground(accent).Bold(true)
)

// Interactive viewer chrome.
var (
	StatusBarStyle = lipgloss.NewStyle().Foreground(light).Background(dim).Padding(0, 1)
	ErrorBarStyle  = lipgloss.NewStyle().Foreground(light).Background(danger).Padding(0, 1)
	HelpStyle      = lipgloss.NewStyle().Foreground(dim)
)
