package tui

import (
	"moodcast/types"

	"github.com/charmbracelet/lipgloss"
)

// Palette: one accent for the app, one color per job state
const (
	colorAccent    = "#E07A5F"
	colorQueued    = "#8D99AE"
	colorRunning   = "#F2CC8F"
	colorComplete  = "#81B29A"
	colorFailed    = "#D62828"
	colorPublished = "#3D85C6"
	colorMuted     = "#6C757D"
	colorText      = "#F4F1DE"
)

var (
	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colorAccent)).
		MarginTop(1).
		MarginBottom(1)

	MutedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorMuted))

	EmotionStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colorText)).
		Background(lipgloss.Color(colorAccent)).
		Padding(0, 1)

	PublishedStyle = lipgloss.NewStyle().
		Underline(true).
		Foreground(lipgloss.Color(colorPublished))

	ResultBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colorComplete)).
		Padding(1, 2)

	FooterStyle = lipgloss.NewStyle().
		Italic(true).
		Foreground(lipgloss.Color(colorMuted))
)

// stateColors maps each job state to its color
var stateColors = map[types.JobState]string{
	types.JobQueued:   colorQueued,
	types.JobRunning:  colorRunning,
	types.JobComplete: colorComplete,
	types.JobFailed:   colorFailed,
}

// StateStyle colors text for a job state; unknown states render muted
func StateStyle(state types.JobState) lipgloss.Style {
	c, ok := stateColors[state]
	if !ok {
		c = colorMuted
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c))
}

// barStyles returns the filled and empty segment styles of the progress bar
func barStyles(state types.JobState) (lipgloss.Style, lipgloss.Style) {
	filled := lipgloss.NewStyle().Foreground(lipgloss.Color(stateColors[types.JobRunning]))
	if c, ok := stateColors[state]; ok && state != types.JobQueued {
		filled = filled.Foreground(lipgloss.Color(c))
	}
	return filled, lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
}
