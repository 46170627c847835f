package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"storyreel/types"
)

// Update implements tea.Model interface.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case TickMsg:
		return m.handleTick()
	case JobCreatedMsg:
		return m.handleJobCreated(msg)
	case StatusUpdateMsg:
		return m.handleStatusUpdate(msg)
	case GenerationStartedMsg:
		return m.handleGenerationStarted(msg)
	case ExportDoneMsg:
		return m.handleExportDone(msg)
	}
	return m, nil
}

// handleKeyPress processes keyboard input.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "u", "U":
		if !m.uploaded {
			m.uploaded = true
			return m, createJob(m.Client, m.AudioPath, m.Duration, m.AspectRatio)
		}
	case "g", "G":
		if m.Status != nil && m.Status.State == types.StatePrompts {
			return m, startGeneration(m.Client, m.JobID)
		}
	case "v", "V":
		if m.canExport() {
			m.exporting = true
			return m, runExport(m.Client, m.JobID, types.ExportVideo, "slideshow.mp4")
		}
	case "z", "Z":
		if m.canExport() {
			m.exporting = true
			return m, runExport(m.Client, m.JobID, types.ExportArchive, "images.zip")
		}
	}
	return m, nil
}

func (m Model) canExport() bool {
	return !m.exporting && m.Status != nil &&
		(m.Status.State == types.StateImages || m.Status.State == types.StateComplete)
}

// handleTick polls for a fresh snapshot while a job exists.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	if m.JobID == "" {
		return m, tickCmd()
	}
	return m, tea.Batch(pollStatus(m.Client, m.JobID), tickCmd())
}

// handleJobCreated records the new job id.
func (m Model) handleJobCreated(msg JobCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Err = fmt.Errorf("upload failed: %w", msg.Err)
		return m, nil
	}
	m.JobID = msg.JobID
	return m, pollStatus(m.Client, m.JobID)
}

// handleStatusUpdate mirrors the server snapshot.
func (m Model) handleStatusUpdate(msg StatusUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Connected = false
		return m, nil
	}
	m.Connected = true
	m.Status = msg.Status
	return m, nil
}

// handleGenerationStarted processes the generation trigger result.
func (m Model) handleGenerationStarted(msg GenerationStartedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Err = fmt.Errorf("generation failed to start: %w", msg.Err)
	}
	return m, nil
}

// handleExportDone records the downloaded artifact path.
func (m Model) handleExportDone(msg ExportDoneMsg) (tea.Model, tea.Cmd) {
	m.exporting = false
	if msg.Err != nil {
		m.Err = fmt.Errorf("export failed: %w", msg.Err)
		return m, nil
	}
	m.ExportPath = msg.Path
	return m, nil
}
