package tui

import (
	"time"

	"moodcast/types"

	tea "github.com/charmbracelet/bubbletea"
)

// submitJob creates a command that posts the message to the API
func submitJob(client *Client, req types.GenerateRequest) tea.Cmd {
	return func() tea.Msg {
		id, err := client.Submit(req)
		return SubmittedMsg{JobID: id, Err: err}
	}
}

// pollStatus creates a command to poll job status
func pollStatus(client *Client, jobID string) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetJob(jobID)
		return StatusUpdateMsg{Status: status, Err: err}
	}
}

// tickCmd creates a command that ticks every 500ms for polling
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
