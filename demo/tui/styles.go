package tui

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#F4A256")).
		MarginTop(1).
		MarginBottom(1)

	// StageStyle marks a pipeline stage that is currently running.
	StageStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#04B575"))

	// MilestoneStyle calls out stages that wait on a keypress.
	MilestoneStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#F4A256")).
		Padding(0, 1)

	// LogStyle renders help text, statistics and the activity feed.
	LogStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#626262"))

	ErrorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF0000"))
)
