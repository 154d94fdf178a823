package tui

import (
	"strings"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("🎬 " + TextTitle))
	b.WriteString("\n\n")

	b.WriteString(m.getStateText())
	b.WriteString("\n\n")

	if m.Status != nil && m.State != StateInput {
		b.WriteString(progressBar(m.Status.Percent, m.Status.State))
		b.WriteString("\n\n")

		if len(m.Status.Logs) > 0 {
			b.WriteString(MutedStyle.Render("📝 Recent Activity:"))
			b.WriteString("\n")
			logs := m.Status.Logs
			if len(logs) > 8 {
				logs = logs[len(logs)-8:]
			}
			for _, l := range logs {
				b.WriteString(MutedStyle.Render("   " + l.Timestamp.Format("15:04:05") + " " + l.Message))
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
	}

	if m.State == StateComplete && m.Status != nil {
		b.WriteString(ResultBoxStyle.Render(m.formatResult()))
		b.WriteString("\n\n")
	}

	switch m.State {
	case StateInput:
		b.WriteString(FooterStyle.Render(TextFooterInput))
	case StateComplete, StateError:
		b.WriteString(FooterStyle.Render(TextFooterDone))
	default:
		b.WriteString(FooterStyle.Render(TextFooterRunning))
	}

	return b.String()
}
