package mask

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"sync"
)

// Brush describes the drawing tool. Size is the stroke diameter in canvas
// pixels; Color only affects the visible overlay, never the mask.
type Brush struct {
	Size  float64
	Color color.RGBA
}

// DefaultBrush matches the UI default: a 20px translucent red marker.
var DefaultBrush = Brush{Size: 20, Color: color.RGBA{R: 255, G: 60, B: 60, A: 255}}

// Pointer is a pointer position in display coordinates (the rendered size of
// the canvas, which may differ from its backing pixel size). Mouse and touch
// input are normalized to this one representation before reaching the engine.
type Pointer struct {
	X float64
	Y float64
}

// Engine maintains two co-registered surfaces over a source image: a visible
// surface showing the source with a translucent overlay tracking the brush,
// and the authoritative mask surface. The mask encodes "marked for edit"
// purely in the alpha channel: marked pixels are fully opaque, everything
// else fully transparent. Stroke color never leaks into the mask.
type Engine struct {
	mu sync.Mutex

	source  *image.RGBA
	visible *image.RGBA
	mask    *image.RGBA

	displayW float64
	displayH float64

	drawing bool
	lastX   float64
	lastY   float64

	// onMask receives the encoded mask after every completed stroke and on
	// clear, so a host can show live previews.
	onMask func(maskPNG []byte)
}

// NewEngine creates an engine over the source image. Both surfaces take the
// image's natural pixel dimensions; the mask starts fully transparent.
func NewEngine(source image.Image, onMask func([]byte)) *Engine {
	e := &Engine{onMask: onMask}
	e.SetSource(source)
	return e
}

// SetSource re-initializes both surfaces for a new source image: the visible
// surface becomes a fresh copy of the image, the mask resets to fully
// transparent. Any in-progress stroke is discarded.
func (e *Engine) SetSource(source image.Image) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bounds := source.Bounds()
	e.source = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(e.source, e.source.Bounds(), source, bounds.Min, draw.Src)

	e.visible = image.NewRGBA(e.source.Bounds())
	draw.Draw(e.visible, e.visible.Bounds(), e.source, image.Point{}, draw.Src)

	e.mask = image.NewRGBA(e.source.Bounds())
	e.displayW = float64(bounds.Dx())
	e.displayH = float64(bounds.Dy())
	e.drawing = false
}

// SetDisplaySize records the rendered size of the canvas so pointer
// coordinates can be scaled back to backing pixels.
func (e *Engine) SetDisplaySize(width, height float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if width > 0 && height > 0 {
		e.displayW = width
		e.displayH = height
	}
}

// Size returns the pixel dimensions of the surfaces.
func (e *Engine) Size() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source.Bounds().Dx(), e.source.Bounds().Dy()
}

// PointerDown begins a stroke: a round dot of the brush diameter is stamped
// on both surfaces at the pointer position.
func (e *Engine) PointerDown(p Pointer, b Brush) {
	e.mu.Lock()
	defer e.mu.Unlock()

	x, y := e.toPixel(p)
	e.drawing = true
	e.lastX, e.lastY = x, y
	e.stampDisc(x, y, b)
}

// PointerMove extends the active stroke to the new position with round
// joins. Ignored while no stroke is active.
func (e *Engine) PointerMove(p Pointer, b Brush) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.drawing {
		return
	}
	x, y := e.toPixel(p)
	e.stampLine(e.lastX, e.lastY, x, y, b)
	e.lastX, e.lastY = x, y
}

// PointerUp finalizes the stroke and emits the serialized mask. Safe to call
// when no stroke is active.
func (e *Engine) PointerUp() ([]byte, error) {
	e.mu.Lock()
	if !e.drawing {
		e.mu.Unlock()
		return nil, nil
	}
	e.drawing = false
	e.mu.Unlock()

	return e.emitMask()
}

// PointerLeave is treated identically to PointerUp so a stroke can never be
// left dangling when the pointer exits the canvas.
func (e *Engine) PointerLeave() ([]byte, error) {
	return e.PointerUp()
}

// Clear resets the mask to fully transparent, restores the visible surface
// to the unmodified source, and emits the (empty) mask.
func (e *Engine) Clear() ([]byte, error) {
	e.mu.Lock()
	e.mask = image.NewRGBA(e.source.Bounds())
	draw.Draw(e.visible, e.visible.Bounds(), e.source, image.Point{}, draw.Src)
	e.drawing = false
	e.mu.Unlock()

	return e.emitMask()
}

// MaskPNG serializes the current mask surface.
func (e *Engine) MaskPNG() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return encodePNG(e.mask)
}

// VisiblePNG serializes the visible surface (source + overlay).
func (e *Engine) VisiblePNG() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return encodePNG(e.visible)
}

// MaskedAt reports whether the pixel is marked for edit.
func (e *Engine) MaskedAt(x, y int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !(image.Point{X: x, Y: y}).In(e.mask.Bounds()) {
		return false
	}
	return e.mask.RGBAAt(x, y).A != 0
}

func (e *Engine) emitMask() ([]byte, error) {
	data, err := e.MaskPNG()
	if err != nil {
		return nil, err
	}
	if e.onMask != nil {
		e.onMask(data)
	}
	return data, nil
}

// toPixel converts display coordinates to backing pixel coordinates. Caller
// holds the lock.
func (e *Engine) toPixel(p Pointer) (float64, float64) {
	scaleX := float64(e.source.Bounds().Dx()) / e.displayW
	scaleY := float64(e.source.Bounds().Dy()) / e.displayH
	return p.X * scaleX, p.Y * scaleY
}

// stampLine stamps discs along the segment at sub-pixel steps, giving round
// caps and joins. Caller holds the lock.
func (e *Engine) stampLine(x0, y0, x1, y1 float64, b Brush) {
	dx, dy := x1-x0, y1-y0
	dist := math.Hypot(dx, dy)
	steps := int(math.Ceil(dist))
	if steps == 0 {
		e.stampDisc(x1, y1, b)
		return
	}
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		e.stampDisc(x0+dx*t, y0+dy*t, b)
	}
}

// stampDisc marks a filled circle on both surfaces. The mask gets hard-edged
// fully opaque pixels (no anti-aliasing, preserving the alpha-only
// contract); the visible surface gets a translucent blend of the brush color
// over the source, applied once per pixel so repeated strokes do not darken.
func (e *Engine) stampDisc(cx, cy float64, b Brush) {
	r := b.Size / 2
	bounds := e.source.Bounds()

	minX := int(math.Floor(cx - r))
	maxX := int(math.Ceil(cx + r))
	minY := int(math.Floor(cy - r))
	maxY := int(math.Ceil(cy + r))

	for y := minY; y <= maxY; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := minX; x <= maxX; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			fx, fy := float64(x)+0.5-cx, float64(y)+0.5-cy
			if fx*fx+fy*fy > r*r {
				continue
			}
			if e.mask.RGBAAt(x, y).A != 0 {
				continue
			}
			e.mask.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			src := e.source.RGBAAt(x, y)
			e.visible.SetRGBA(x, y, blendHalf(src, b.Color))
		}
	}
}

// blendHalf mixes the overlay color into the base at 50% opacity.
func blendHalf(base, overlay color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8((uint16(base.R) + uint16(overlay.R)) / 2),
		G: uint8((uint16(base.G) + uint16(overlay.G)) / 2),
		B: uint8((uint16(base.B) + uint16(overlay.B)) / 2),
		A: 255,
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("no surface to encode")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
