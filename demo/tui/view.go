package tui

import (
	"fmt"
	"strings"
)

// View implements tea.Model interface.
func (m Model) View() string {
	var b strings.Builder

	// Title
	b.WriteString(TitleStyle.Render("🎞 StoryReel Pipeline Demo"))
	b.WriteString("\n\n")

	// Current state
	b.WriteString(m.getStateText())
	b.WriteString("\n\n")

	// Statistics
	if m.Status != nil && len(m.Status.Segments) > 0 {
		stats := fmt.Sprintf("📊 Segments: %d", len(m.Status.Segments))
		b.WriteString(LogStyle.Render(stats))
		b.WriteString("\n")

		generated, fallback := m.segmentSummary()
		if generated+fallback > 0 {
			b.WriteString(LogStyle.Render(fmt.Sprintf("   Generated: %d | Fallback: %d", generated, fallback)))
			b.WriteString("\n")
		}
	}

	if m.ExportPath != "" {
		b.WriteString(StageStyle.Render(fmt.Sprintf("💾 Saved artifact to %s", m.ExportPath)))
		b.WriteString("\n")
	}

	// Recent logs from the server snapshot
	if m.Status != nil && len(m.Status.Logs) > 0 {
		b.WriteString("\n")
		b.WriteString(LogStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		logs := m.Status.Logs
		if len(logs) > 8 {
			logs = logs[len(logs)-8:]
		}
		for _, entry := range logs {
			b.WriteString(LogStyle.Render("   " + entry.Message))
			b.WriteString("\n")
		}
	}

	// Help text
	b.WriteString("\n")
	b.WriteString(LogStyle.Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}
