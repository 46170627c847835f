package types

import "time"

// Segment is one fixed-length slice of the narrated timeline. The collection
// is always replaced wholesale on mutation; individual fields are never
// written in place once a segment leaves the store.
type Segment struct {
	ID              string `json:"id"`
	TimestampLabel  string `json:"timestamp"`
	TranscriptSlice string `json:"transcript_slice,omitempty"`
	Prompt          string `json:"prompt"`
	ImageURL        string `json:"image_url,omitempty"`
	VideoURL        string `json:"video_url,omitempty"`
	IsGenerating    bool   `json:"is_generating"`
	IsFallback      bool   `json:"is_fallback,omitempty"`
}

// TranscriptionWord is word-level timing from the speech-to-text collaborator.
type TranscriptionWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscriptionSegment is a time-aligned chunk reported by the transcription
// collaborator. Distinct from Segment, which is the pipeline's own entity.
type TranscriptionSegment struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

// AudioTranscription is the immutable result of one transcription call.
type AudioTranscription struct {
	Text     string                 `json:"text"`
	Segments []TranscriptionSegment `json:"segments,omitempty"`
	Words    []TranscriptionWord    `json:"words,omitempty"`
}

// JobState is the pipeline job state machine.
type JobState string

const (
	StateIdle         JobState = "idle"
	StateTranscribing JobState = "transcribing"
	StateSynthesizing JobState = "synthesizing"
	StatePrompts      JobState = "prompts"
	StateGenerating   JobState = "generating"
	StateImages       JobState = "images"
	StateExporting    JobState = "exporting"
	StateComplete     JobState = "complete"
	StateError        JobState = "error"
)

// LogEntry is a single pipeline log line with timestamp.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// JobStatus is a point-in-time snapshot of a pipeline job.
type JobStatus struct {
	ID            string     `json:"id"`
	State         JobState   `json:"state"`
	AspectRatio   string     `json:"aspect_ratio"`
	Duration      float64    `json:"duration_seconds"`
	Transcript    string     `json:"transcript,omitempty"`
	Segments      []Segment  `json:"segments"`
	Logs          []LogEntry `json:"logs"`
	RawLLMOutput  string     `json:"raw_llm_output,omitempty"`
	GeneratedOK   int        `json:"generated_ok"`
	GeneratedFail int        `json:"generated_fail"`
	Error         string     `json:"error,omitempty"`
}

// ExportFormat selects the artifact type produced by the export engine.
type ExportFormat string

const (
	ExportVideo   ExportFormat = "video"
	ExportArchive ExportFormat = "zip"
)

// ExportArtifact is a finished export: the encoded bytes plus enough metadata
// for a download response or an S3 put. It is never persisted locally.
type ExportArtifact struct {
	Filename    string
	ContentType string
	Data        []byte
	// Degraded reports that the video encoder was unavailable and the
	// still-composite fallback was produced instead.
	Degraded bool
}

// StageEvent is published to the optional Kafka topic after each pipeline
// stage completes.
type StageEvent struct {
	JobID     string    `json:"job_id"`
	Stage     JobState  `json:"stage"`
	Segments  int       `json:"segments,omitempty"`
	Succeeded int       `json:"succeeded,omitempty"`
	Failed    int       `json:"failed,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
