package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"storyreel/config"
	"storyreel/events"
	"storyreel/export"
	"storyreel/imagecache"
	"storyreel/imagegen"
	"storyreel/prompt"
	"storyreel/segment"
	"storyreel/transcribe"
	"storyreel/types"
)

// Runner drives jobs through the full pipeline: transcription, segment
// partitioning, prompt synthesis, image generation and export. One Runner
// serves all jobs; per-job state lives in Job.
type Runner struct {
	cfg         config.Config
	transcriber *transcribe.Client
	synthesizer *prompt.Synthesizer
	images      *imagegen.Client
	cache       *imagecache.Cache
	exporter    *export.Engine
	producer    *events.Producer

	jobs *Registry
}

// NewRunner wires the pipeline stages together.
func NewRunner(cfg config.Config, transcriber *transcribe.Client, synthesizer *prompt.Synthesizer, images *imagegen.Client, cache *imagecache.Cache, exporter *export.Engine, producer *events.Producer) *Runner {
	return &Runner{
		cfg:         cfg,
		transcriber: transcriber,
		synthesizer: synthesizer,
		images:      images,
		cache:       cache,
		exporter:    exporter,
		producer:    producer,
		jobs:        NewRegistry(),
	}
}

// Jobs exposes the job registry.
func (r *Runner) Jobs() *Registry {
	return r.jobs
}

// CreateJob registers a fresh idle job.
func (r *Runner) CreateJob(aspectRatio string) *Job {
	job := NewJob(aspectRatio)
	r.jobs.Add(job)
	return job
}

// ProcessAudio runs transcription, partitioning and prompt synthesis for the
// uploaded audio. durationSeconds is the caller-reported audio length; the
// transcript timing is not trusted for it.
func (r *Runner) ProcessAudio(ctx context.Context, job *Job, audio io.Reader, filename string, durationSeconds float64) error {
	job.SetState(types.StateTranscribing)
	job.AddLog("Transcribing %s (%.1fs of audio)", filename, durationSeconds)

	transcription, raw, err := r.transcriber.Transcribe(ctx, audio, filename, transcribe.Options{
		TagAudioEvents: true,
		Diarize:        false,
		LanguageCode:   r.cfg.LanguageCode,
	})
	if err != nil {
		job.SetError(fmt.Errorf("transcription failed: %w", err))
		return err
	}
	job.SetTranscription(transcription, raw, durationSeconds)
	job.AddLog("Transcription complete: %d characters", len(transcription.Text))
	r.publish(job, types.StateTranscribing, 0)

	segments, err := segment.Partition(durationSeconds, transcription.Text)
	if err != nil {
		job.SetError(err)
		return err
	}
	job.Segments.Replace(segments)
	job.AddLog("Partitioned into %d segments of %ds", len(segments), config.WindowSeconds)

	job.SetState(types.StateSynthesizing)
	job.SetUserPrompt(prompt.BuildUserPrompt(transcription.Text, durationSeconds))

	synthesized, rawLLM, err := r.synthesizer.Synthesize(ctx, transcription.Text, durationSeconds, segments)
	job.SetRawLLMOutput(rawLLM)
	if err != nil {
		job.SetError(fmt.Errorf("prompt synthesis failed: %w", err))
		return err
	}
	job.Segments.Replace(synthesized)
	job.AddLog("Synthesized %d prompts", len(synthesized))
	job.SetState(types.StatePrompts)
	r.publish(job, types.StateSynthesizing, len(synthesized))
	return nil
}

// RunCustomPrompt replaces the segment list from a free-form instruction
// instead of a transcript. Used by the prompt debugging surface.
func (r *Runner) RunCustomPrompt(ctx context.Context, job *Job, instruction string) error {
	job.SetState(types.StateSynthesizing)
	job.SetUserPrompt(instruction)
	job.AddLog("Running custom prompt instruction")

	segments, rawLLM, err := r.synthesizer.SynthesizeCustom(ctx, instruction)
	job.SetRawLLMOutput(rawLLM)
	if err != nil {
		job.SetError(fmt.Errorf("custom prompt synthesis failed: %w", err))
		return err
	}
	job.Segments.Replace(segments)
	job.AddLog("Custom prompt produced %d segments", len(segments))
	job.SetState(types.StatePrompts)
	r.publish(job, types.StateSynthesizing, len(segments))
	return nil
}

// RefinePrompts re-synthesizes every prompt with one LLM call per segment,
// anchored to that segment's transcript slice. Slower and costlier than the
// single batched call, but each prompt tracks its own slice more closely.
func (r *Runner) RefinePrompts(ctx context.Context, job *Job) error {
	tr := job.Transcription()
	if tr == nil {
		return fmt.Errorf("no transcription available")
	}

	job.SetState(types.StateSynthesizing)
	job.AddLog("Refining prompts per segment")

	refined, err := r.synthesizer.SynthesizePerSegment(ctx, tr.Text, job.Segments.Snapshot())
	if err != nil {
		job.SetError(fmt.Errorf("prompt refinement failed: %w", err))
		return err
	}
	job.Segments.Replace(refined)
	job.AddLog("Refined %d prompts", len(refined))
	job.SetState(types.StatePrompts)
	r.publish(job, types.StateSynthesizing, len(refined))
	return nil
}

// EditPrompt overwrites a single segment's prompt text.
func (r *Runner) EditPrompt(job *Job, segmentID, newPrompt string) error {
	ok := job.Segments.Update(segmentID, func(s types.Segment) types.Segment {
		s.Prompt = newPrompt
		s.ImageURL = ""
		s.IsFallback = false
		return s
	})
	if !ok {
		return fmt.Errorf("unknown segment %q", segmentID)
	}
	job.AddLog("Prompt updated for segment %s", segmentID)
	return nil
}

// GenerateAll generates an image for every segment with a prompt, strictly in
// order with a throttle between dispatches. Individual failures degrade to
// fallback images and never abort the batch.
func (r *Runner) GenerateAll(ctx context.Context, job *Job) error {
	segments := job.Segments.Snapshot()
	if len(segments) == 0 {
		err := fmt.Errorf("no segments to generate")
		job.SetError(err)
		return err
	}

	job.SetState(types.StateGenerating)
	job.AddLog("Generating images for %d segments", len(segments))

	succeeded, failed := 0, 0
	for i, seg := range segments {
		if seg.Prompt == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			job.SetError(err)
			return err
		}
		if i > 0 {
			time.Sleep(config.DispatchThrottle)
		}
		if r.generateSegment(ctx, job, seg) {
			succeeded++
		} else {
			failed++
		}
	}

	job.SetGenerationCounts(succeeded, failed)
	job.AddLog("Image generation finished: %d succeeded, %d failed", succeeded, failed)
	if fallbacks := countFallbacks(job.Segments.Snapshot()); fallbacks > 0 {
		job.AddLog("%d segments substituted with fallback images", fallbacks)
	}
	job.SetState(types.StateImages)
	r.publishCounts(job, succeeded, failed)
	return nil
}

// GenerateOne regenerates the image for a single segment.
func (r *Runner) GenerateOne(ctx context.Context, job *Job, segmentID string) error {
	seg, ok := job.Segments.Get(segmentID)
	if !ok {
		return fmt.Errorf("unknown segment %q", segmentID)
	}
	if seg.Prompt == "" {
		return fmt.Errorf("segment %q has no prompt", segmentID)
	}
	if !r.generateSegment(ctx, job, seg) {
		return fmt.Errorf("generation failed for segment %q", segmentID)
	}
	return nil
}

// generateSegment runs one generation and records the result on the store.
// Returns true when the segment ended up with an image, including a fallback
// substitution; only a hard generation error counts as failure.
func (r *Runner) generateSegment(ctx context.Context, job *Job, seg types.Segment) bool {
	job.Segments.Update(seg.ID, func(s types.Segment) types.Segment {
		s.IsGenerating = true
		return s
	})
	defer job.Segments.Update(seg.ID, func(s types.Segment) types.Segment {
		s.IsGenerating = false
		return s
	})

	aspect := job.AspectRatio()
	if cached := r.cache.Get(ctx, seg.Prompt, aspect); cached != "" {
		job.Segments.Update(seg.ID, func(s types.Segment) types.Segment {
			s.ImageURL = cached
			s.IsFallback = false
			return s
		})
		job.AddLog("Segment %s served from cache", seg.TimestampLabel)
		return true
	}

	result, err := r.images.GenerateWithFallback(ctx, seg.Prompt, aspect)
	if err != nil {
		log.Printf("image generation for segment %s: %v", seg.ID, err)
		job.AddLog("Segment %s failed: %v", seg.TimestampLabel, err)
		return false
	}

	job.Segments.Update(seg.ID, func(s types.Segment) types.Segment {
		s.ImageURL = result.URL
		s.IsFallback = result.IsFallback
		return s
	})
	if result.IsFallback {
		job.AddLog("Segment %s degraded to fallback image", seg.TimestampLabel)
		return true
	}
	r.cache.Put(ctx, seg.Prompt, aspect, result.URL)
	job.AddLog("Segment %s image ready (%dx%d)", seg.TimestampLabel, result.Width, result.Height)
	return true
}

func countFallbacks(segments []types.Segment) int {
	n := 0
	for _, s := range segments {
		if s.IsFallback {
			n++
		}
	}
	return n
}

// Export produces the requested artifact from the job's generated images.
func (r *Runner) Export(ctx context.Context, job *Job, format types.ExportFormat) (*types.ExportArtifact, error) {
	job.SetState(types.StateExporting)
	job.AddLog("Exporting as %s", format)

	artifact, err := r.exporter.Export(ctx, format, job.Segments.WithImages(), job.AspectRatio())
	if err != nil {
		job.SetError(fmt.Errorf("export failed: %w", err))
		return nil, err
	}
	if artifact.Degraded {
		job.AddLog("Video encoder unavailable, produced still composite instead")
	}
	job.AddLog("Export complete: %s (%d bytes)", artifact.Filename, len(artifact.Data))
	job.SetState(types.StateComplete)
	r.publish(job, types.StateExporting, job.Segments.Len())
	return artifact, nil
}

func (r *Runner) publish(job *Job, stage types.JobState, segments int) {
	r.producer.Publish(types.StageEvent{
		JobID:     job.ID,
		Stage:     stage,
		Segments:  segments,
		Timestamp: time.Now(),
	})
}

func (r *Runner) publishCounts(job *Job, succeeded, failed int) {
	r.producer.Publish(types.StageEvent{
		JobID:     job.ID,
		Stage:     types.StateGenerating,
		Segments:  job.Segments.Len(),
		Succeeded: succeeded,
		Failed:    failed,
		Timestamp: time.Now(),
	})
}
