package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"storyreel/types"
)

// Model represents the TUI client state (thin client). The server owns all
// job state; the model only mirrors the latest snapshot.
type Model struct {
	Client *PipelineClient

	AudioPath   string
	Duration    float64
	AspectRatio string

	JobID      string
	Status     *types.JobStatus
	ExportPath string
	Err        error

	Connected bool
	uploaded  bool
	exporting bool
}

// NewModel creates a new TUI model.
func NewModel(baseURL, audioPath string, duration float64, aspectRatio string) Model {
	return Model{
		Client:      NewPipelineClient(baseURL),
		AudioPath:   audioPath,
		Duration:    duration,
		AspectRatio: aspectRatio,
	}
}

// Init implements tea.Model interface.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// getStateText returns the appropriate state message.
func (m Model) getStateText() string {
	if m.Err != nil {
		return ErrorStyle.Render(fmt.Sprintf("❌ Error: %v", m.Err))
	}
	if !m.uploaded {
		return MilestoneStyle.Render("👋 Ready to start!") + "\n\n" +
			LogStyle.Render(fmt.Sprintf("Press 'u' to upload %s (%.0fs)", m.AudioPath, m.Duration))
	}
	if m.Status == nil {
		return StageStyle.Render("📤 Uploading audio...")
	}

	switch m.Status.State {
	case types.StateTranscribing:
		return StageStyle.Render("🎙 Transcribing audio...")
	case types.StateSynthesizing:
		return StageStyle.Render("🧠 Synthesizing image prompts...")
	case types.StatePrompts:
		return MilestoneStyle.Render("📝 Prompts ready") + "\n\n" +
			LogStyle.Render("Press 'g' to generate images")
	case types.StateGenerating:
		return StageStyle.Render("🎨 Generating images...")
	case types.StateImages:
		return MilestoneStyle.Render("🖼 Images ready") + "\n\n" +
			LogStyle.Render("Press 'v' to export video | 'z' to export zip")
	case types.StateExporting:
		return StageStyle.Render("📦 Exporting...")
	case types.StateComplete:
		return MilestoneStyle.Render("✅ COMPLETE")
	case types.StateError:
		return ErrorStyle.Render(fmt.Sprintf("❌ Pipeline error: %s", m.Status.Error))
	default:
		return StageStyle.Render("⏳ Waiting...")
	}
}

// segmentSummary counts generated and fallback images.
func (m Model) segmentSummary() (generated, fallback int) {
	if m.Status == nil {
		return 0, 0
	}
	for _, seg := range m.Status.Segments {
		if seg.ImageURL == "" {
			continue
		}
		if seg.IsFallback {
			fallback++
		} else {
			generated++
		}
	}
	return generated, fallback
}
