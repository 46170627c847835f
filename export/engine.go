package export

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"storyreel/types"
)

// ErrNoImages is the hard failure for an export with no image-bearing
// segments. Everything else degrades rather than fails.
var ErrNoImages = errors.New("no images available to export")

// Engine assembles ordered image-bearing segments into a downloadable
// artifact: an encoded video, a zip archive, or (when the encoder is
// unavailable) a single still composite.
type Engine struct {
	httpClient *http.Client
}

// NewEngine creates an export engine.
func NewEngine() *Engine {
	return &Engine{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Export produces the requested artifact type from the segments.
func (e *Engine) Export(ctx context.Context, format types.ExportFormat, segments []types.Segment, aspectRatio string) (*types.ExportArtifact, error) {
	switch format {
	case types.ExportArchive:
		return e.ExportArchive(ctx, segments)
	default:
		return e.ExportVideo(ctx, segments, aspectRatio)
	}
}

// fetchImages downloads each segment image. A single unfetchable image is
// skipped with a warning; the operation only fails when nothing at all could
// be fetched.
func (e *Engine) fetchImages(ctx context.Context, segments []types.Segment) ([][]byte, error) {
	images := make([][]byte, 0, len(segments))
	for i, seg := range segments {
		data, err := e.fetch(ctx, seg.ImageURL)
		if err != nil {
			log.Printf("skipping image %d (%s): %v", i+1, seg.TimestampLabel, err)
			continue
		}
		images = append(images, data)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("none of the %d images could be fetched", len(segments))
	}
	return images, nil
}

func (e *Engine) fetch(ctx context.Context, url string) ([]byte, error) {
	// Mask-edited segments carry their image inline as a data URL.
	if strings.HasPrefix(url, "data:") {
		_, encoded, ok := strings.Cut(url, ",")
		if !ok {
			return nil, fmt.Errorf("malformed data url")
		}
		return base64.StdEncoding.DecodeString(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
