package tui

import (
	"time"

	"storyreel/types"
)

// Messages for the tea program (polling-based)

// JobCreatedMsg is sent after the audio upload is accepted.
type JobCreatedMsg struct {
	JobID string
	Err   error
}

// StatusUpdateMsg is sent when we receive a job snapshot.
type StatusUpdateMsg struct {
	Status *types.JobStatus
	Err    error
}

// GenerationStartedMsg is sent after the generation batch is triggered.
type GenerationStartedMsg struct {
	Err error
}

// ExportDoneMsg is sent when the artifact download finishes.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// TickMsg is sent periodically to trigger polling.
type TickMsg struct {
	Time time.Time
}
