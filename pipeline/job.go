package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"storyreel/config"
	"storyreel/segment"
	"storyreel/types"
)

// Job holds the complete state of one audio-to-slideshow pipeline run with
// thread-safe access. Segment records live in their own copy-on-write store;
// everything else sits behind the job mutex.
type Job struct {
	ID       string
	Segments *segment.Store

	mu sync.RWMutex

	state       types.JobState
	aspectRatio string
	duration    float64

	transcription *types.AudioTranscription
	rawTranscribe string
	userPrompt    string
	rawLLMOutput  string

	generatedOK   int
	generatedFail int

	// exportKeys maps export format to the last uploaded artifact key.
	exportKeys map[types.ExportFormat]string

	logs    []types.LogEntry
	lastErr error

	// subscribers receive a nil signal after every state/log change; used by
	// the websocket event stream.
	subscribers map[chan struct{}]struct{}
}

// NewJob creates an idle job for the given aspect ratio.
func NewJob(aspectRatio string) *Job {
	if aspectRatio == "" {
		aspectRatio = "16:9"
	}
	return &Job{
		ID:          uuid.New().String(),
		Segments:    segment.NewStore(),
		state:       types.StateIdle,
		aspectRatio: aspectRatio,
		logs:        make([]types.LogEntry, 0),
		exportKeys:  make(map[types.ExportFormat]string),
		subscribers: make(map[chan struct{}]struct{}),
	}
}

// AddLog appends a log entry and notifies subscribers.
func (j *Job) AddLog(format string, args ...interface{}) {
	j.mu.Lock()
	j.appendLogLocked(fmt.Sprintf(format, args...))
	j.mu.Unlock()
	j.notify()
}

// SetState transitions the job state.
func (j *Job) SetState(state types.JobState) {
	j.mu.Lock()
	j.state = state
	j.mu.Unlock()
	j.notify()
}

// State returns the current state.
func (j *Job) State() types.JobState {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// SetError records the error, transitions to the error state and logs it, so
// no failure path can leave the job stuck in a processing state.
func (j *Job) SetError(err error) {
	j.mu.Lock()
	j.state = types.StateError
	j.lastErr = err
	j.appendLogLocked(fmt.Sprintf("Error: %v", err))
	j.mu.Unlock()
	j.notify()
}

// AspectRatio returns the configured aspect ratio.
func (j *Job) AspectRatio() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.aspectRatio
}

// Duration returns the audio duration in seconds.
func (j *Job) Duration() float64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.duration
}

// SetTranscription stores the immutable transcription result plus its raw
// JSON for debug display.
func (j *Job) SetTranscription(t *types.AudioTranscription, raw string, duration float64) {
	j.mu.Lock()
	j.transcription = t
	j.rawTranscribe = raw
	j.duration = duration
	j.mu.Unlock()
	j.notify()
}

// Transcription returns the stored transcription, or nil before transcribing.
func (j *Job) Transcription() *types.AudioTranscription {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.transcription
}

// SetUserPrompt records the instruction sent (or to be sent) to the LLM so
// debug mode can show and re-edit it.
func (j *Job) SetUserPrompt(p string) {
	j.mu.Lock()
	j.userPrompt = p
	j.mu.Unlock()
}

// UserPrompt returns the last LLM instruction.
func (j *Job) UserPrompt() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.userPrompt
}

// SetRawLLMOutput records the free-form LLM response for debug display.
func (j *Job) SetRawLLMOutput(raw string) {
	j.mu.Lock()
	j.rawLLMOutput = raw
	j.mu.Unlock()
}

// SetGenerationCounts stores the end-of-batch summary numbers.
func (j *Job) SetGenerationCounts(ok, fail int) {
	j.mu.Lock()
	j.generatedOK = ok
	j.generatedFail = fail
	j.mu.Unlock()
	j.notify()
}

// SetExportKey remembers the object key of the last uploaded artifact for
// the format, so later requests can hand out the download location again.
func (j *Job) SetExportKey(format types.ExportFormat, key string) {
	j.mu.Lock()
	j.exportKeys[format] = key
	j.mu.Unlock()
}

// ExportKey returns the last uploaded artifact key for the format, or "".
func (j *Job) ExportKey(format types.ExportFormat) string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.exportKeys[format]
}

// Status returns a point-in-time snapshot.
func (j *Job) Status() types.JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()

	status := types.JobStatus{
		ID:            j.ID,
		State:         j.state,
		AspectRatio:   j.aspectRatio,
		Duration:      j.duration,
		Segments:      j.Segments.Snapshot(),
		Logs:          append([]types.LogEntry{}, j.logs...),
		RawLLMOutput:  j.rawLLMOutput,
		GeneratedOK:   j.generatedOK,
		GeneratedFail: j.generatedFail,
	}
	if j.transcription != nil {
		status.Transcript = j.transcription.Text
	}
	if j.lastErr != nil {
		status.Error = j.lastErr.Error()
	}
	return status
}

// Subscribe registers a change-notification channel. The returned cancel
// function must be called when the subscriber goes away.
func (j *Job) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	j.mu.Lock()
	j.subscribers[ch] = struct{}{}
	j.mu.Unlock()

	cancel := func() {
		j.mu.Lock()
		delete(j.subscribers, ch)
		j.mu.Unlock()
	}
	return ch, cancel
}

func (j *Job) notify() {
	j.mu.RLock()
	defer j.mu.RUnlock()
	for ch := range j.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// appendLogLocked appends to the bounded log ring. Caller holds the lock.
func (j *Job) appendLogLocked(message string) {
	j.logs = append(j.logs, types.LogEntry{Timestamp: time.Now(), Message: message})
	if len(j.logs) > config.MaxJobLogs {
		j.logs = j.logs[len(j.logs)-config.MaxJobLogs:]
	}
}

// Registry is the set of live jobs, keyed by id.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Add registers a job.
func (r *Registry) Add(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
}

// Get returns the job with the given id.
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return job, ok
}
