package export

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"storyreel/config"
	"storyreel/segment"
	"storyreel/types"
)

// ExportVideo compiles the segment images into a slideshow video: each image
// is held for the segment window length via a concat playlist, scaled to fit
// the target dimensions and letterboxed. When no video encoder is available
// in the host environment the still-composite fallback is produced instead;
// only an empty input list is a hard failure.
func (e *Engine) ExportVideo(ctx context.Context, segments []types.Segment, aspectRatio string) (*types.ExportArtifact, error) {
	ordered := segment.OrderedWithImages(segments)
	if len(ordered) == 0 {
		return nil, ErrNoImages
	}

	images, err := e.fetchImages(ctx, ordered)
	if err != nil {
		return nil, err
	}

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		log.Printf("ffmpeg not available, degrading to still composite: %v", err)
		return e.composeFallback(images, aspectRatio, len(ordered))
	}

	data, err := e.encodeVideo(images, aspectRatio)
	if err != nil {
		log.Printf("video encoding failed, degrading to still composite: %v", err)
		return e.composeFallback(images, aspectRatio, len(ordered))
	}

	return &types.ExportArtifact{
		Filename:    fmt.Sprintf("video_%s.mp4", time.Now().Format("2006-01-02")),
		ContentType: "video/mp4",
		Data:        data,
	}, nil
}

func (e *Engine) encodeVideo(images [][]byte, aspectRatio string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "storyreel_export_")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	listPath, err := writeConcatList(tmpDir, images)
	if err != nil {
		return nil, err
	}

	width, height := TargetDimensions(aspectRatio)
	outputPath := filepath.Join(tmpDir, "output.mp4")

	// Scale to fit, then pad to the exact target size so arbitrary source
	// dimensions are letterboxed rather than cropped or distorted.
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,format=%s",
		width, height, width, height, config.VideoPixelFormat,
	)

	err = ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(outputPath, ffmpeg.KwArgs{
			"vf":       vf,
			"c:v":      config.VideoCodec,
			"preset":   config.VideoPreset,
			"crf":      config.VideoCRF,
			"r":        config.VideoFrameRate,
			"pix_fmt":  config.VideoPixelFormat,
			"movflags": "+faststart",
		}).
		OverWriteOutput().
		Run()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w", err)
	}

	return os.ReadFile(outputPath)
}

// writeConcatList stores the images with zero-padded names and builds the
// concat-demuxer playlist: every frame is held for the window length, and
// the final frame is repeated without a duration so the encoder does not
// truncate its display time.
func writeConcatList(dir string, images [][]byte) (string, error) {
	var list strings.Builder
	for i, data := range images {
		filename := fmt.Sprintf("image%03d.png", i+1)
		if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write frame %d: %w", i+1, err)
		}
		fmt.Fprintf(&list, "file '%s'\nduration %d\n", filename, config.FrameHoldSeconds)
		if i == len(images)-1 {
			fmt.Fprintf(&list, "file '%s'\n", filename)
		}
	}

	listPath := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}
	return listPath, nil
}
