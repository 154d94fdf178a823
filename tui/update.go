package tui

import (
	"errors"

	"moodcast/types"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case SubmittedMsg:
		return m.handleSubmitted(msg)
	case StatusUpdateMsg:
		return m.handleStatus(msg)
	case TickMsg:
		if m.State == StateRunning {
			return m, pollStatus(m.Client, m.JobID)
		}
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.State == StateInput {
		switch msg.Type {
		case tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			req := m.request()
			if req.Text == "" {
				return m, nil
			}
			m.State = StateSubmitting
			return m, submitJob(m.Client, req)
		case tea.KeyBackspace:
			if len(m.Input) > 0 {
				m.Input = m.Input[:len(m.Input)-1]
			}
		case tea.KeySpace:
			m.Input = append(m.Input, ' ')
		case tea.KeyRunes:
			m.Input = append(m.Input, msg.Runes...)
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "n":
		if m.State == StateComplete || m.State == StateError {
			m.State = StateInput
			m.Input = nil
			m.JobID = ""
			m.Status = nil
			m.Err = nil
		}
	}
	return m, nil
}

// handleSubmitted starts polling once the job is accepted
func (m Model) handleSubmitted(msg SubmittedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.State = StateError
		m.Err = msg.Err
		return m, nil
	}
	m.JobID = msg.JobID
	m.State = StateRunning
	return m, tea.Batch(pollStatus(m.Client, m.JobID), tickCmd())
}

// handleStatus syncs the polled job status
func (m Model) handleStatus(msg StatusUpdateMsg) (tea.Model, tea.Cmd) {
	if m.State != StateRunning {
		return m, nil
	}
	if msg.Err != nil {
		m.Connected = false
		return m, tickCmd()
	}
	m.Connected = true
	m.Status = msg.Status

	switch msg.Status.State {
	case types.JobComplete:
		m.State = StateComplete
		return m, nil
	case types.JobFailed:
		m.State = StateError
		m.Err = errors.New(msg.Status.Error)
		return m, nil
	}
	return m, tickCmd()
}
