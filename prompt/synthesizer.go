package prompt

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"

	"storyreel/config"
	"storyreel/llm"
	"storyreel/types"
)

// Synthesizer derives one image-generation prompt per timeline segment from
// the transcript, via a chat LLM collaborator.
type Synthesizer struct {
	client llm.Client
}

// NewSynthesizer creates a Synthesizer around the given chat client.
func NewSynthesizer(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

const systemPrompt = `You will receive the transcription of a video. Analyze the total audio duration supplied in the request and divide it into segments of exactly 5 seconds each. ALWAYS round the last segment up so the entire duration is covered: for a 27 second audio you must create 6 segments. For each segment, write an English image-generation prompt illustrating what is being said at that moment. Every prompt MUST start with "` + config.PromptSentinel + `" and must be detailed: environment, lighting, facial expressions and other relevant scene elements. The image model has no context beyond the prompt itself. Consider the full transcription, including what comes before and after each segment, so the images stay coherent with each other. Never use double quotes inside prompt text; use single quotes only, so the JSON stays valid.`

// Synthesize runs one LLM call over the whole transcript and fills in the
// prompts of the supplied segments. The segment count returned by the LLM is
// not trusted: results are paired by index up to the shorter of the two lists.
// The raw response text is returned alongside for debug display.
func (s *Synthesizer) Synthesize(ctx context.Context, transcript string, totalDuration float64, segments []types.Segment) ([]types.Segment, string, error) {
	userPrompt := buildUserPrompt(transcript, totalDuration)

	raw, err := s.client.Chat(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, "", fmt.Errorf("prompt synthesis failed: %w", err)
	}

	updated, err := s.reconcile(raw, segments)
	if err != nil {
		return nil, raw, err
	}
	return updated, raw, nil
}

// SynthesizeCustom runs a single user-edited instruction (debug mode) and
// builds a fresh segment list from whatever array the response contains. No
// re-transcription happens; the instruction already embeds the transcript.
func (s *Synthesizer) SynthesizeCustom(ctx context.Context, instruction string) ([]types.Segment, string, error) {
	raw, err := s.client.Chat(ctx, systemPrompt, instruction)
	if err != nil {
		return nil, "", fmt.Errorf("prompt synthesis failed: %w", err)
	}

	parsed, err := ParseSegments(raw)
	if err != nil {
		return nil, raw, err
	}

	segments := make([]types.Segment, 0, len(parsed))
	for _, p := range parsed {
		segments = append(segments, types.Segment{
			ID:             uuid.New().String(),
			TimestampLabel: p.Timestamp,
			Prompt:         p.Prompt,
		})
	}
	return segments, raw, nil
}

// SynthesizePerSegment issues one LLM call per segment, anchored to that
// segment's transcript slice with the full transcript as background, so each
// image is visually tied to its own slice but thematically consistent with
// the whole narration.
func (s *Synthesizer) SynthesizePerSegment(ctx context.Context, transcript string, segments []types.Segment) ([]types.Segment, error) {
	updated := make([]types.Segment, len(segments))
	copy(updated, segments)

	for i, seg := range updated {
		userPrompt := fmt.Sprintf(`Full narration for background context:

%s

The segment %s of the narration says:

%s

Write ONE English image-generation prompt for this segment only. Start it with "%s". Respond with the prompt text alone, no explanations.`,
			transcript, seg.TimestampLabel, seg.TranscriptSlice, config.PromptSentinel)

		raw, err := s.client.Chat(ctx, systemPrompt, userPrompt)
		if err != nil {
			return nil, fmt.Errorf("prompt synthesis for segment %s failed: %w", seg.TimestampLabel, err)
		}

		text := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
		if !strings.HasPrefix(text, config.PromptSentinel) {
			text = config.PromptSentinel + " " + text
		}
		updated[i].Prompt = text
	}

	return updated, nil
}

// reconcile pairs parsed prompts with the partitioner's segments by index.
func (s *Synthesizer) reconcile(raw string, segments []types.Segment) ([]types.Segment, error) {
	parsed, err := ParseSegments(raw)
	if err != nil {
		return nil, err
	}

	if len(parsed) != len(segments) {
		log.Printf("LLM returned %d segments, expected %d; pairing by index", len(parsed), len(segments))
	}

	updated := make([]types.Segment, len(segments))
	copy(updated, segments)
	for i := 0; i < len(updated) && i < len(parsed); i++ {
		updated[i].Prompt = parsed[i].Prompt
	}
	return updated, nil
}

// BuildUserPrompt renders the default instruction shown to the user in debug
// mode before synthesis runs.
func BuildUserPrompt(transcript string, totalDuration float64) string {
	return buildUserPrompt(transcript, totalDuration)
}

func buildUserPrompt(transcript string, totalDuration float64) string {
	count := int(math.Ceil(totalDuration / float64(config.WindowSeconds)))
	return fmt.Sprintf(`Here is the transcription of an audio track:

Full text: %s

Total audio duration: %.2f seconds

Your task:
1. Use the total duration of %.2f seconds to divide the audio
2. Split that duration into segments of exactly 5 seconds (0:00-0:05, 0:05-0:10, and so on)
3. If the duration is not an exact multiple of 5, ALWAYS round up and add a final segment for the remaining time
4. Mathematically, for this duration you must create EXACTLY %d segments
5. For each segment write an English image-generation prompt representing what is said in that window
6. Every prompt MUST start with "%s" and be highly detailed
7. Return ONLY a JSON array in this format, with no extra explanations:
[
  {
    "id": "1",
    "timestamp": "0:00 - 0:05",
    "prompt": "%s [detailed description here]"
  }
]`, transcript, totalDuration, totalDuration, count, config.PromptSentinel, config.PromptSentinel)
}
