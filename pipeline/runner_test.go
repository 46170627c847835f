package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storyreel/config"
	"storyreel/export"
	"storyreel/imagegen"
	"storyreel/prompt"
	"storyreel/transcribe"
	"storyreel/types"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) ModelName() string { return "fake" }

// transcribeServer returns a stub speech-to-text endpoint.
func transcribeServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"text": text})
	}))
	t.Cleanup(server.Close)
	return server
}

// generationServer returns a stub submit/poll endpoint that succeeds on the
// first status check.
func generationServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{"id": "job-1"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "succeeded",
			"output": []string{"https://img.example/generated.png"},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func testRunner(t *testing.T, llmResponse string, imageGenURL string) *Runner {
	t.Helper()
	ts := transcribeServer(t, "a calm morning on the coast with fishing boats")

	cfg := config.Config{
		TranscribeAPIKey: "key",
		ImageGenAPIKey:   "token",
		ImageGenBaseURL:  imageGenURL,
		ImageGenModel:    "stub/model",
	}
	return NewRunner(
		cfg,
		transcribe.NewClient(ts.URL, "key"),
		prompt.NewSynthesizer(&fakeLLM{response: llmResponse}),
		imagegen.NewClient(cfg),
		nil,
		export.NewEngine(),
		nil,
	)
}

const twoSegmentResponse = `[
  {"id": "1", "timestamp": "0:00 - 0:05", "prompt": "A realistic high resolution photo of a coast at dawn"},
  {"id": "2", "timestamp": "0:05 - 0:10", "prompt": "A realistic high resolution photo of fishing boats"}
]`

func TestProcessAudioRunsThroughPrompts(t *testing.T) {
	r := testRunner(t, twoSegmentResponse, "http://unused")
	job := r.CreateJob("16:9")

	err := r.ProcessAudio(context.Background(), job, strings.NewReader("audio"), "clip.mp3", 10)
	if err != nil {
		t.Fatalf("ProcessAudio returned error: %v", err)
	}

	if got := job.State(); got != types.StatePrompts {
		t.Errorf("state = %s, want %s", got, types.StatePrompts)
	}
	segments := job.Segments.Snapshot()
	if len(segments) != 2 {
		t.Fatalf("segment count = %d, want 2", len(segments))
	}
	for i, seg := range segments {
		if !strings.HasPrefix(seg.Prompt, "A realistic high resolution photo of") {
			t.Errorf("segment %d prompt = %q", i, seg.Prompt)
		}
	}
	if job.UserPrompt() == "" {
		t.Error("user prompt not recorded for debug display")
	}
	if tr := job.Transcription(); tr == nil || !strings.Contains(tr.Text, "coast") {
		t.Errorf("transcription = %+v", tr)
	}
}

func TestProcessAudioTranscriptionFailureSetsError(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusInternalServerError)
	}))
	defer failing.Close()

	cfg := config.Config{TranscribeAPIKey: "key"}
	r := NewRunner(
		cfg,
		transcribe.NewClient(failing.URL, "key"),
		prompt.NewSynthesizer(&fakeLLM{response: twoSegmentResponse}),
		imagegen.NewClient(cfg),
		nil,
		export.NewEngine(),
		nil,
	)
	job := r.CreateJob("16:9")

	if err := r.ProcessAudio(context.Background(), job, strings.NewReader("audio"), "clip.mp3", 10); err == nil {
		t.Fatal("expected transcription error")
	}
	if got := job.State(); got != types.StateError {
		t.Errorf("state = %s, want %s", got, types.StateError)
	}
	if job.Status().Error == "" {
		t.Error("status should carry the error message")
	}
}

func TestProcessAudioParseFailureKeepsRawResponse(t *testing.T) {
	r := testRunner(t, "sorry, no JSON today", "http://unused")
	job := r.CreateJob("16:9")

	err := r.ProcessAudio(context.Background(), job, strings.NewReader("audio"), "clip.mp3", 10)
	if err == nil {
		t.Fatal("expected synthesis error")
	}
	var parseErr *prompt.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v (%T), want *prompt.ParseError", err, err)
	}
	if job.Status().RawLLMOutput != "sorry, no JSON today" {
		t.Error("raw LLM output should be kept for debugging on parse failure")
	}
	if job.State() != types.StateError {
		t.Errorf("state = %s", job.State())
	}
}

func TestEditPromptResetsImage(t *testing.T) {
	r := testRunner(t, twoSegmentResponse, "http://unused")
	job := r.CreateJob("16:9")
	job.Segments.Replace([]types.Segment{
		{ID: "s1", TimestampLabel: "0:00 - 0:05", Prompt: "old", ImageURL: "https://img.example/old.png", IsFallback: true},
	})

	if err := r.EditPrompt(job, "s1", "new prompt"); err != nil {
		t.Fatalf("EditPrompt returned error: %v", err)
	}
	seg, _ := job.Segments.Get("s1")
	if seg.Prompt != "new prompt" {
		t.Errorf("prompt = %q", seg.Prompt)
	}
	if seg.ImageURL != "" || seg.IsFallback {
		t.Error("stale image must be discarded when the prompt changes")
	}

	if err := r.EditPrompt(job, "unknown", "x"); err == nil {
		t.Error("expected error for unknown segment id")
	}
}

func TestGenerateAllFillsEverySegment(t *testing.T) {
	if testing.Short() {
		t.Skip("polls at production intervals")
	}

	gen := generationServer(t)
	r := testRunner(t, twoSegmentResponse, gen.URL)
	job := r.CreateJob("16:9")
	job.Segments.Replace([]types.Segment{
		{ID: "s1", TimestampLabel: "0:00 - 0:05", Prompt: "A realistic high resolution photo of a coast"},
		{ID: "s2", TimestampLabel: "0:05 - 0:10", Prompt: "A realistic high resolution photo of boats"},
	})

	if err := r.GenerateAll(context.Background(), job); err != nil {
		t.Fatalf("GenerateAll returned error: %v", err)
	}

	if got := job.State(); got != types.StateImages {
		t.Errorf("state = %s, want %s", got, types.StateImages)
	}
	status := job.Status()
	if status.GeneratedOK != 2 || status.GeneratedFail != 0 {
		t.Errorf("counts = %d ok / %d failed", status.GeneratedOK, status.GeneratedFail)
	}
	for _, seg := range job.Segments.Snapshot() {
		if seg.ImageURL != "https://img.example/generated.png" {
			t.Errorf("segment %s image = %q", seg.ID, seg.ImageURL)
		}
		if seg.IsGenerating {
			t.Errorf("segment %s still flagged generating", seg.ID)
		}
		if seg.IsFallback {
			t.Errorf("segment %s wrongly marked fallback", seg.ID)
		}
	}
}

func TestGenerateAllDegradesToFallback(t *testing.T) {
	if testing.Short() {
		t.Skip("polls at production intervals")
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer down.Close()

	r := testRunner(t, twoSegmentResponse, down.URL)
	job := r.CreateJob("16:9")
	job.Segments.Replace([]types.Segment{
		{ID: "s1", TimestampLabel: "0:00 - 0:05", Prompt: "A realistic high resolution photo of a coast"},
	})

	if err := r.GenerateAll(context.Background(), job); err != nil {
		t.Fatalf("a degraded batch must still complete: %v", err)
	}

	seg, _ := job.Segments.Get("s1")
	if seg.ImageURL == "" || !seg.IsFallback {
		t.Errorf("segment not degraded to fallback: %+v", seg)
	}
	// A fallback substitution is a soft success, not a failure.
	status := job.Status()
	if status.GeneratedOK != 1 || status.GeneratedFail != 0 {
		t.Errorf("counts = %d ok / %d failed", status.GeneratedOK, status.GeneratedFail)
	}
}

func TestGenerateOneAcceptsFallbackSubstitution(t *testing.T) {
	if testing.Short() {
		t.Skip("polls at production intervals")
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer down.Close()

	r := testRunner(t, twoSegmentResponse, down.URL)
	job := r.CreateJob("16:9")
	job.Segments.Replace([]types.Segment{
		{ID: "s1", TimestampLabel: "0:00 - 0:05", Prompt: "A realistic high resolution photo of a coast"},
	})

	if err := r.GenerateOne(context.Background(), job, "s1"); err != nil {
		t.Fatalf("fallback substitution must not surface as an error: %v", err)
	}
	seg, _ := job.Segments.Get("s1")
	if seg.ImageURL == "" || !seg.IsFallback {
		t.Errorf("segment missing fallback image: %+v", seg)
	}
}

func TestGenerateAllWithNoSegments(t *testing.T) {
	r := testRunner(t, twoSegmentResponse, "http://unused")
	job := r.CreateJob("16:9")

	if err := r.GenerateAll(context.Background(), job); err == nil {
		t.Fatal("expected error for empty segment list")
	}
	if job.State() != types.StateError {
		t.Errorf("state = %s", job.State())
	}
}

func TestExportNoImagesSetsError(t *testing.T) {
	r := testRunner(t, twoSegmentResponse, "http://unused")
	job := r.CreateJob("16:9")
	job.Segments.Replace([]types.Segment{
		{ID: "s1", TimestampLabel: "0:00 - 0:05", Prompt: "p"},
	})

	if _, err := r.Export(context.Background(), job, types.ExportArchive); !errors.Is(err, export.ErrNoImages) {
		t.Fatalf("error = %v, want export.ErrNoImages", err)
	}
	if job.State() != types.StateError {
		t.Errorf("state = %s", job.State())
	}
}

func TestExportArchiveCompletesJob(t *testing.T) {
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("png-bytes"))
	}))
	defer images.Close()

	r := testRunner(t, twoSegmentResponse, "http://unused")
	job := r.CreateJob("16:9")
	job.Segments.Replace([]types.Segment{
		{ID: "s1", TimestampLabel: "0:00 - 0:05", ImageURL: images.URL + "/a.png"},
	})

	artifact, err := r.Export(context.Background(), job, types.ExportArchive)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if artifact.ContentType != "application/zip" || len(artifact.Data) == 0 {
		t.Errorf("artifact = %+v", artifact)
	}
	if got := job.State(); got != types.StateComplete {
		t.Errorf("state = %s, want %s", got, types.StateComplete)
	}
}

func TestRefinePromptsRewritesEachSegment(t *testing.T) {
	r := testRunner(t, "a lone fishing boat at dawn", "http://unused")
	job := r.CreateJob("16:9")
	job.SetTranscription(&types.AudioTranscription{Text: "a calm morning on the coast"}, "{}", 10)
	job.Segments.Replace([]types.Segment{
		{ID: "s1", TimestampLabel: "0:00 - 0:05", TranscriptSlice: "a calm morning", Prompt: "old"},
		{ID: "s2", TimestampLabel: "0:05 - 0:10", TranscriptSlice: "on the coast", Prompt: "old"},
	})

	if err := r.RefinePrompts(context.Background(), job); err != nil {
		t.Fatalf("RefinePrompts returned error: %v", err)
	}

	segments := job.Segments.Snapshot()
	for i, seg := range segments {
		if !strings.HasPrefix(seg.Prompt, config.PromptSentinel) {
			t.Errorf("segment %d prompt %q missing sentinel prefix", i, seg.Prompt)
		}
		if !strings.Contains(seg.Prompt, "fishing boat") {
			t.Errorf("segment %d prompt %q not refined", i, seg.Prompt)
		}
	}
	if got := job.State(); got != types.StatePrompts {
		t.Errorf("state = %s, want %s", got, types.StatePrompts)
	}
}

func TestRefinePromptsWithoutTranscriptionFails(t *testing.T) {
	r := testRunner(t, "irrelevant", "http://unused")
	job := r.CreateJob("16:9")

	if err := r.RefinePrompts(context.Background(), job); err == nil {
		t.Fatal("expected error for job with no transcription")
	}
}
