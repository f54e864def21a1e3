// Package tui provides Bubble Tea views for the depthstream CLI.
//
// TUI is opt-in (--tui) and read-only. Views render the same payloads as
// the json, table and yaml outputs; there is no TUI-only data.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Near and far follow the depth preview ramp.
var (
	nearColor  = lipgloss.Color("#F97316")
	farColor   = lipgloss.Color("#0EA5E9")
	okColor    = lipgloss.Color("#22C55E")
	badColor   = lipgloss.Color("#DC2626")
	dimColor   = lipgloss.Color("#71717A")
	brightText = lipgloss.Color("#FAFAFA")
)

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(farColor).MarginBottom(1)
	LabelStyle = lipgloss.NewStyle().Foreground(dimColor).Width(16)
	ValueStyle = lipgloss.NewStyle().Foreground(brightText)
	ErrorStyle = lipgloss.NewStyle().Foreground(badColor)
	HelpStyle  = lipgloss.NewStyle().Foreground(dimColor).MarginTop(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimColor).
			Padding(1, 2)

	// Counter tiles on the stats view.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			Width(18).
			Align(lipgloss.Center)
	StatLabelStyle = lipgloss.NewStyle().Foreground(dimColor)
	StatValueStyle = lipgloss.NewStyle().Bold(true)
)

// StateStyle colors an outcome or mode value.
func StateStyle(state string) lipgloss.Style {
	s := lipgloss.NewStyle()
	switch state {
	case "completed", "depth":
		return s.Foreground(okColor)
	case "color_only", "truncated":
		return s.Foreground(nearColor)
	case "failed", "unsupported":
		return s.Foreground(badColor).Bold(true)
	default:
		return ValueStyle
	}
}
