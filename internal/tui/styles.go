package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/johan-st/sparql-tui/internal/console"
)

// Palette. Adaptive colors keep the console readable on light terminals.
var (
	primaryColor = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"}
	okColor      = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	warnColor    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#64748B", Dark: "#94A3B8"}
	textColor    = lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#E2E8F0"}
	barColor     = lipgloss.AdaptiveColor{Light: "#E2E8F0", Dark: "#1E293B"}
	rowColor     = lipgloss.AdaptiveColor{Light: "#CBD5E1", Dark: "#334155"}
	inverseText  = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#0F172A"}
)

var (
	borderTitleStyle        = lipgloss.NewStyle().Foreground(mutedColor)
	focusedBorderTitleStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	dimItemStyle            = lipgloss.NewStyle().Foreground(mutedColor)
	titleStyle              = lipgloss.NewStyle().Foreground(primaryColor).Bold(true).MarginBottom(1)
	errorStyle              = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	successStyle            = lipgloss.NewStyle().Foreground(okColor)
)

// Results grid
var (
	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(primaryColor).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(mutedColor)
	tableCellStyle        = lipgloss.NewStyle().Foreground(textColor).PaddingRight(2)
	tableSelectedRowStyle = lipgloss.NewStyle().Foreground(textColor).Background(rowColor)
)

var (
	statusBarStyle     = lipgloss.NewStyle().Foreground(textColor).Background(barColor).Padding(0, 1)
	statusKeyStyle     = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	statusValueStyle   = lipgloss.NewStyle().Foreground(textColor)
	commandPromptStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	toastStyle         = lipgloss.NewStyle().Foreground(inverseText).Background(warnColor).Padding(0, 1)
	helpKeyStyle       = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	helpDescStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	modalStyle         = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(1, 2)
)

var badgeStyle = lipgloss.NewStyle().Foreground(inverseText).Padding(0, 1)

var badgeColors = map[console.Connectivity]lipgloss.AdaptiveColor{
	console.Connected:    okColor,
	console.Disconnected: errorColor,
	console.Unknown:      warnColor,
}

// badge renders the connectivity indicator.
func badge(c console.Connectivity) string {
	color, ok := badgeColors[c]
	if !ok {
		color = mutedColor
	}
	return badgeStyle.Background(color).Render(c.String())
}
