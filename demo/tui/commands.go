package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"storyreel/types"
)

// createJob creates a command that uploads the audio file.
func createJob(client *PipelineClient, audioPath string, duration float64, aspectRatio string) tea.Cmd {
	return func() tea.Msg {
		id, err := client.CreateJob(audioPath, duration, aspectRatio)
		return JobCreatedMsg{JobID: id, Err: err}
	}
}

// pollStatus creates a command to poll the job snapshot.
func pollStatus(client *PipelineClient, jobID string) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus(jobID)
		return StatusUpdateMsg{Status: status, Err: err}
	}
}

// startGeneration creates a command that triggers the image batch.
func startGeneration(client *PipelineClient, jobID string) tea.Cmd {
	return func() tea.Msg {
		return GenerationStartedMsg{Err: client.StartGeneration(jobID)}
	}
}

// runExport creates a command that downloads the artifact.
func runExport(client *PipelineClient, jobID string, format types.ExportFormat, outPath string) tea.Cmd {
	return func() tea.Msg {
		path, err := client.Export(jobID, format, outPath)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

// tickCmd creates a command that ticks every 500ms for polling.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
