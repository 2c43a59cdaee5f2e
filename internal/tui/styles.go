package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/taskplan/internal/plan"
)

var (
	// TitleStyle renders view headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	// SelectedStyle highlights the row under the cursor.
	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	// SubtleStyle de-emphasizes completed or secondary content.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	// StatusBarStyle renders the bottom key hint bar.
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	statusStyles = map[plan.Status]lipgloss.Style{
		plan.StatusTodo:       lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		plan.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		plan.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		plan.StatusBlocked:    lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		plan.StatusCancelled:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true),
	}
)

// StatusGlyph returns the marker used in front of a task line.
func StatusGlyph(s plan.Status) string {
	switch s {
	case plan.StatusCompleted:
		return "✓"
	case plan.StatusInProgress:
		return "▸"
	case plan.StatusBlocked:
		return "✗"
	case plan.StatusCancelled:
		return "–"
	default:
		return "○"
	}
}

// RenderStatus renders a status with its color.
func RenderStatus(s plan.Status) string {
	style, ok := statusStyles[s]
	if !ok {
		style = SubtleStyle
	}
	return style.Render(string(s))
}
