package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"time"

	"storyreel/segment"
	"storyreel/types"
)

// ExportArchive fetches each segment image and packs them into a zip with
// zero-padded sequential filenames in timeline order.
func (e *Engine) ExportArchive(ctx context.Context, segments []types.Segment) (*types.ExportArtifact, error) {
	ordered := segment.OrderedWithImages(segments)
	if len(ordered) == 0 {
		return nil, ErrNoImages
	}

	images, err := e.fetchImages(ctx, ordered)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for i, data := range images {
		entry, err := writer.Create(fmt.Sprintf("image-%03d.png", i+1))
		if err != nil {
			return nil, fmt.Errorf("failed to create archive entry: %w", err)
		}
		if _, err := entry.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write archive entry: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return &types.ExportArtifact{
		Filename:    fmt.Sprintf("images_%s.zip", time.Now().Format("2006-01-02")),
		ContentType: "application/zip",
		Data:        buf.Bytes(),
	}, nil
}
