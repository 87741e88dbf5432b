// Package tui renders the console views in the terminal and runs the chat
// sidebar as a bubbletea program.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	stepDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	stepActiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("35")).Bold(true)
	stepPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	userStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("129")).
			Foreground(lipgloss.Color("252")).
			PaddingLeft(1).
			PaddingRight(1)
	assistantStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			PaddingLeft(1).
			PaddingRight(1)
	workingStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// statusStyle colours a status badge by its CSS class.
func statusStyle(class string) lipgloss.Style {
	switch class {
	case "status-available", "status-paid", "status-delivered", "status-shipped":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	case "status-low-stock", "status-partially-shipped", "status-pending":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	case "status-backorder", "status-cancelled", "status-discontinued":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	default:
		return lipgloss.NewStyle()
	}
}
