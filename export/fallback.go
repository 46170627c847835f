package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"storyreel/types"
)

// composeFallback builds the last-resort artifact when video encoding is
// unavailable: the first decodable image letterboxed onto a canvas of the
// target dimensions, with a caption stating how many images the slideshow
// was meant to contain.
func (e *Engine) composeFallback(images [][]byte, aspectRatio string, intended int) (*types.ExportArtifact, error) {
	width, height := TargetDimensions(aspectRatio)

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			canvas.SetRGBA(x, y, color.RGBA{A: 255})
		}
	}

	if first := firstDecodable(images); first != nil {
		drawLetterboxed(canvas, first)
	}

	caption := fmt.Sprintf("%d images generated", intended)
	drawCaption(canvas, caption)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode fallback composite: %w", err)
	}

	return &types.ExportArtifact{
		Filename:    fmt.Sprintf("slideshow_%s.png", time.Now().Format("2006-01-02")),
		ContentType: "image/png",
		Data:        buf.Bytes(),
		Degraded:    true,
	}, nil
}

func firstDecodable(images [][]byte) image.Image {
	for _, data := range images {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err == nil {
			return img
		}
	}
	return nil
}

// drawLetterboxed scales the image to fit the canvas and centers it, leaving
// black bars rather than cropping or distorting.
func drawLetterboxed(canvas *image.RGBA, img image.Image) {
	cw := canvas.Bounds().Dx()
	ch := canvas.Bounds().Dy()
	iw := img.Bounds().Dx()
	ih := img.Bounds().Dy()
	if iw == 0 || ih == 0 {
		return
	}

	scale := float64(cw) / float64(iw)
	if s := float64(ch) / float64(ih); s < scale {
		scale = s
	}
	sw := int(float64(iw) * scale)
	sh := int(float64(ih) * scale)
	x := (cw - sw) / 2
	y := (ch - sh) / 2

	target := image.Rect(x, y, x+sw, y+sh)
	xdraw.ApproxBiLinear.Scale(canvas, target, img, img.Bounds(), xdraw.Over, nil)
}

func drawCaption(canvas *image.RGBA, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()

	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot: fixed.P(
			(canvas.Bounds().Dx()-width)/2,
			canvas.Bounds().Dy()-50,
		),
	}
	drawer.DrawString(text)
}
