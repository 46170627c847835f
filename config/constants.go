package config

import "time"

const (
	// Segment timeline
	WindowSeconds = 5

	// Image generation
	GenerationLongEdge = 1024
	PollInterval       = 2 * time.Second
	MaxPollAttempts    = 30
	MaxSubmitRetries   = 3
	RetryBackoffStep   = 1 * time.Second
	DispatchThrottle   = 500 * time.Millisecond

	// Prompt synthesis
	PromptSentinel = "A realistic high resolution photo of"

	// Export
	FrameHoldSeconds = 5
	VideoCodec       = "libx264"
	VideoPreset      = "medium"
	VideoCRF         = "23"
	VideoFrameRate   = "30"
	VideoPixelFormat = "yuv420p"

	// Mask sessions
	MaskSessionTTL = 30 * time.Minute

	// Job state
	MaxJobLogs = 50
)
