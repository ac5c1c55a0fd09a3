// Package tui renders the budget ledger in the terminal and asks for
// expenses with interactive forms.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorBlue   = lipgloss.Color("#2563EB")
	colorRed    = lipgloss.Color("#DC2626")
	colorGreen  = lipgloss.Color("#16A34A")
	colorMuted  = lipgloss.Color("#64748B")
	colorBorder = lipgloss.Color("#CBD5E1")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true).
			Width(14)

	valueStyle = lipgloss.NewStyle().Bold(true)

	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(colorRed).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().Foreground(colorGreen)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)
