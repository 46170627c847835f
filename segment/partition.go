package segment

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"storyreel/config"
	"storyreel/types"
)

// ErrInvalidDuration is returned when the audio duration is zero or negative.
var ErrInvalidDuration = errors.New("audio duration must be greater than zero")

// Partition splits the narrated timeline into fixed-length windows and assigns
// a word-balanced slice of the transcript to each one. Prompts are left empty
// for the synthesizer to fill.
//
// The returned windows tile [0, totalDurationSeconds] exactly: every window is
// WindowSeconds long except the last, which ends at the true duration.
func Partition(totalDurationSeconds float64, fullTranscript string) ([]types.Segment, error) {
	if totalDurationSeconds <= 0 {
		return nil, ErrInvalidDuration
	}

	count := int(math.Ceil(totalDurationSeconds / float64(config.WindowSeconds)))
	words := strings.Fields(fullTranscript)
	wordsPerSegment := 0
	if count > 0 {
		wordsPerSegment = int(math.Ceil(float64(len(words)) / float64(count)))
	}

	segments := make([]types.Segment, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i * config.WindowSeconds)
		end := start + float64(config.WindowSeconds)
		if end > totalDurationSeconds {
			end = totalDurationSeconds
		}

		segments = append(segments, types.Segment{
			ID:              uuid.New().String(),
			TimestampLabel:  FormatLabel(start, end),
			TranscriptSlice: sliceWords(words, i, wordsPerSegment),
		})
	}

	return segments, nil
}

// FormatLabel renders a half-open interval as "m:ss - m:ss" using floor-based
// minute/second decomposition.
func FormatLabel(start, end float64) string {
	return fmt.Sprintf("%s - %s", formatClock(start), formatClock(end))
}

// ParseLabelStart extracts the start offset in seconds from a timestamp label.
// Labels that do not parse sort to the end.
func ParseLabelStart(label string) float64 {
	var min, sec int
	if _, err := fmt.Sscanf(label, "%d:%d", &min, &sec); err != nil {
		return math.MaxFloat64
	}
	return float64(min*60 + sec)
}

func formatClock(seconds float64) string {
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// sliceWords returns words[i*per : (i+1)*per] joined with single spaces,
// clamped to the word list. Segments past the end of a short transcript get
// an empty slice, which is not an error.
func sliceWords(words []string, i, per int) string {
	if per <= 0 {
		return ""
	}
	lo := i * per
	if lo >= len(words) {
		return ""
	}
	hi := lo + per
	if hi > len(words) {
		hi = len(words)
	}
	return strings.Join(words[lo:hi], " ")
}
