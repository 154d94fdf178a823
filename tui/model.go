package tui

import (
	"fmt"
	"strings"

	"moodcast/types"

	tea "github.com/charmbracelet/bubbletea"
)

// State represents the client state machine
type State string

const (
	StateInput      State = "input"
	StateSubmitting State = "submitting"
	StateRunning    State = "running"
	StateComplete   State = "complete"
	StateError      State = "error"
)

// Model is the TUI client state (thin client over the job API)
type Model struct {
	Client *Client

	// Request options from the command line
	Duration   float64
	ImageCount int

	State  State
	Input  []rune
	JobID  string
	Status *types.JobStatus
	Err    error

	// Connected is false after a failed poll
	Connected bool
}

// NewModel creates a model; a non-empty text is submitted immediately
func NewModel(apiURL, text string, duration float64, imageCount int) Model {
	return Model{
		Client:     NewClient(apiURL),
		Duration:   duration,
		ImageCount: imageCount,
		State:      StateInput,
		Input:      []rune(text),
		Connected:  true,
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	if strings.TrimSpace(string(m.Input)) != "" {
		return func() tea.Msg { return tea.KeyMsg{Type: tea.KeyEnter} }
	}
	return nil
}

func (m Model) request() types.GenerateRequest {
	return types.GenerateRequest{
		Text:       strings.TrimSpace(string(m.Input)),
		Duration:   m.Duration,
		ImageCount: m.ImageCount,
	}
}

// getStateText returns the appropriate state message
func (m Model) getStateText() string {
	switch m.State {
	case StateInput:
		return MutedStyle.Render(TextPrompt) + "\n\n> " + string(m.Input) + "█"
	case StateSubmitting:
		return StateStyle(types.JobQueued).Render("📤 Submitting...")
	case StateRunning:
		if !m.Connected {
			return StateStyle(types.JobFailed).Render("❌ Lost connection, retrying...")
		}
		stage, state := "queued", types.JobQueued
		if m.Status != nil {
			stage, state = m.Status.Stage, m.Status.State
		}
		return StateStyle(state).Render(fmt.Sprintf("⏳ %s (job %s)", stage, m.JobID))
	case StateComplete:
		return StateStyle(types.JobComplete).Render("✅ COMPLETE")
	case StateError:
		errMsg := "Unknown error"
		if m.Err != nil {
			errMsg = m.Err.Error()
		} else if m.Status != nil && m.Status.Error != "" {
			errMsg = m.Status.Error
		}
		return StateStyle(types.JobFailed).Render(fmt.Sprintf("❌ Error: %v", errMsg))
	default:
		return ""
	}
}

// progressBar renders pct as a fixed-width bar colored by state
func progressBar(pct int, state types.JobState) string {
	filledStyle, emptyStyle := barStyles(state)
	pct = max(0, min(100, pct))
	filled := barWidth * pct / 100
	return filledStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", barWidth-filled)) +
		fmt.Sprintf(" %3d%%", pct)
}

// formatResult formats the finished job for display
func (m Model) formatResult() string {
	st := m.Status
	var b strings.Builder

	b.WriteString(TitleStyle.UnsetMargins().Render("Your video"))
	b.WriteString("\n\n")
	if st.Emotion != nil {
		b.WriteString(fmt.Sprintf("Emotion: %s\n\n", EmotionStyle.Render(st.Emotion.EmotionTag)))
		voice := st.Emotion.VoiceText
		if len(voice) > 200 {
			voice = voice[:200] + "..."
		}
		b.WriteString(fmt.Sprintf("Narration:\n%s\n\n", MutedStyle.Render(voice)))
	}
	b.WriteString(fmt.Sprintf("File: %s\n", st.OutputPath))
	if st.PublishURL != "" {
		b.WriteString(fmt.Sprintf("Published: %s\n", PublishedStyle.Render(st.PublishURL)))
	}
	return b.String()
}
