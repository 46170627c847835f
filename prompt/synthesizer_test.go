package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storyreel/types"
)

type fakeLLM struct {
	response string
	err      error

	lastSystem string
	lastUser   string
	calls      int
}

func (f *fakeLLM) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	return f.response, f.err
}

func (f *fakeLLM) ModelName() string { return "fake" }

func threeSegments() []types.Segment {
	return []types.Segment{
		{ID: "a", TimestampLabel: "0:00 - 0:05"},
		{ID: "b", TimestampLabel: "0:05 - 0:10"},
		{ID: "c", TimestampLabel: "0:10 - 0:12"},
	}
}

func TestSynthesizeFillsPromptsByIndex(t *testing.T) {
	fake := &fakeLLM{response: `[
  {"id": "1", "timestamp": "0:00 - 0:05", "prompt": "A realistic high resolution photo of a forest"},
  {"id": "2", "timestamp": "0:05 - 0:10", "prompt": "A realistic high resolution photo of a river"},
  {"id": "3", "timestamp": "0:10 - 0:12", "prompt": "A realistic high resolution photo of a cabin"}
]`}
	s := NewSynthesizer(fake)

	updated, raw, err := s.Synthesize(context.Background(), "walking through the forest", 12, threeSegments())
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if raw != fake.response {
		t.Error("raw response not passed through")
	}

	wantPrompts := []string{
		"A realistic high resolution photo of a forest",
		"A realistic high resolution photo of a river",
		"A realistic high resolution photo of a cabin",
	}
	for i, want := range wantPrompts {
		if updated[i].Prompt != want {
			t.Errorf("segment %d prompt = %q, want %q", i, updated[i].Prompt, want)
		}
	}

	// Partitioner identity must survive synthesis.
	if updated[0].ID != "a" || updated[2].TimestampLabel != "0:10 - 0:12" {
		t.Errorf("segment identity was rewritten: %+v", updated)
	}
}

func TestSynthesizeCountMismatchPairsUpToShorter(t *testing.T) {
	fake := &fakeLLM{response: `[
  {"id": "1", "timestamp": "0:00 - 0:05", "prompt": "A realistic high resolution photo of dawn"},
  {"id": "2", "timestamp": "0:05 - 0:10", "prompt": "A realistic high resolution photo of noon"}
]`}
	s := NewSynthesizer(fake)

	updated, _, err := s.Synthesize(context.Background(), "text", 12, threeSegments())
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if updated[0].Prompt == "" || updated[1].Prompt == "" {
		t.Error("leading segments should have been paired")
	}
	if updated[2].Prompt != "" {
		t.Errorf("unpaired segment got prompt %q", updated[2].Prompt)
	}
	if len(updated) != 3 {
		t.Errorf("segment count changed to %d", len(updated))
	}
}

func TestSynthesizeUserPromptMentionsExactCount(t *testing.T) {
	fake := &fakeLLM{response: `[{"id": "1", "timestamp": "0:00 - 0:05", "prompt": "A realistic high resolution photo of x"}]`}
	s := NewSynthesizer(fake)

	_, _, err := s.Synthesize(context.Background(), "text", 27, []types.Segment{{ID: "a"}})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if !strings.Contains(fake.lastUser, "EXACTLY 6 segments") {
		t.Errorf("user prompt should pin the segment count for 27s:\n%s", fake.lastUser)
	}
	if !strings.Contains(fake.lastUser, "27.00 seconds") {
		t.Error("user prompt should carry the total duration")
	}
}

func TestSynthesizeSurfacesParseError(t *testing.T) {
	fake := &fakeLLM{response: "no json here, sorry"}
	s := NewSynthesizer(fake)

	_, raw, err := s.Synthesize(context.Background(), "text", 10, threeSegments())
	if err == nil {
		t.Fatal("expected parse error")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if raw != fake.response {
		t.Error("raw response should still be returned on parse failure")
	}
}

func TestSynthesizeChatFailure(t *testing.T) {
	fake := &fakeLLM{err: errors.New("boom")}
	s := NewSynthesizer(fake)

	if _, _, err := s.Synthesize(context.Background(), "text", 10, threeSegments()); err == nil {
		t.Fatal("expected chat error to propagate")
	}
}

func TestSynthesizeCustomBuildsFreshSegments(t *testing.T) {
	fake := &fakeLLM{response: `[
  {"id": "1", "timestamp": "0:00 - 0:05", "prompt": "A realistic high resolution photo of a desert"},
  {"id": "2", "timestamp": "0:05 - 0:10", "prompt": "A realistic high resolution photo of an oasis"}
]`}
	s := NewSynthesizer(fake)

	segments, _, err := s.SynthesizeCustom(context.Background(), "make it about deserts")
	if err != nil {
		t.Fatalf("SynthesizeCustom returned error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].ID == "" || segments[0].ID == "1" {
		t.Errorf("custom segments should get fresh ids, got %q", segments[0].ID)
	}
	if segments[1].TimestampLabel != "0:05 - 0:10" {
		t.Errorf("timestamp = %q", segments[1].TimestampLabel)
	}
	if fake.lastUser != "make it about deserts" {
		t.Errorf("instruction not passed verbatim: %q", fake.lastUser)
	}
}

func TestSynthesizePerSegmentEnforcesSentinel(t *testing.T) {
	fake := &fakeLLM{response: "a cat on a sunny windowsill"}
	s := NewSynthesizer(fake)

	updated, err := s.SynthesizePerSegment(context.Background(), "full text", threeSegments())
	if err != nil {
		t.Fatalf("SynthesizePerSegment returned error: %v", err)
	}
	if fake.calls != 3 {
		t.Errorf("expected one call per segment, got %d", fake.calls)
	}
	for i, seg := range updated {
		if !strings.HasPrefix(seg.Prompt, "A realistic high resolution photo of") {
			t.Errorf("segment %d prompt missing sentinel prefix: %q", i, seg.Prompt)
		}
	}
}
