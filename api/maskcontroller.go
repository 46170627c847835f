package api

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"storyreel/config"
	"storyreel/imageedit"
	"storyreel/mask"
	"storyreel/pipeline"
	"storyreel/types"
)

// maskSession pairs one masking engine with the source image it was built
// from, so an edit request can send both to the editing collaborator.
type maskSession struct {
	engine    *mask.Engine
	source    []byte
	jobID     string
	segmentID string
	touched   time.Time
}

// MaskController serves interactive mask sessions: clients open a session on
// a segment's image, stream pointer strokes into it, and apply the resulting
// mask through the image editing collaborator.
type MaskController struct {
	cfg    config.Config
	runner *pipeline.Runner
	editor *imageedit.Client

	mu       sync.Mutex
	sessions map[string]*maskSession
}

// NewMaskController creates the controller.
func NewMaskController(cfg config.Config, runner *pipeline.Runner, editor *imageedit.Client) *MaskController {
	return &MaskController{
		cfg:      cfg,
		runner:   runner,
		editor:   editor,
		sessions: make(map[string]*maskSession),
	}
}

// Register attaches the mask routes.
func (mc *MaskController) Register(r *gin.Engine) {
	r.POST("/api/masks", mc.handleCreateSession)
	r.POST("/api/masks/:sessionId/strokes", mc.handleStrokes)
	r.POST("/api/masks/:sessionId/clear", mc.handleClear)
	r.GET("/api/masks/:sessionId/mask.png", mc.handleMaskPNG)
	r.GET("/api/masks/:sessionId/preview.png", mc.handlePreviewPNG)
	r.POST("/api/masks/:sessionId/edit", mc.handleEdit)
}

// handleCreateSession opens a session from the image of a job segment.
func (mc *MaskController) handleCreateSession(c *gin.Context) {
	var req struct {
		JobID     string `json:"job_id" binding:"required"`
		SegmentID string `json:"segment_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, ok := mc.runner.Jobs().Get(req.JobID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	seg, ok := job.Segments.Get(req.SegmentID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "segment not found"})
		return
	}
	if seg.ImageURL == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "segment has no image yet"})
		return
	}

	raw, img, err := mc.fetchImage(c, seg.ImageURL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	session := &maskSession{
		engine:    mask.NewEngine(img, nil),
		source:    raw,
		jobID:     req.JobID,
		segmentID: req.SegmentID,
		touched:   time.Now(),
	}
	id := uuid.New().String()

	mc.mu.Lock()
	mc.evictExpiredLocked()
	mc.sessions[id] = session
	mc.mu.Unlock()

	w, h := session.engine.Size()
	c.JSON(http.StatusCreated, gin.H{"id": id, "width": w, "height": h})
}

// strokeEvent is one pointer event in display coordinates.
type strokeEvent struct {
	Type string  `json:"type"` // down, move, up, leave
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// handleStrokes applies a batch of pointer events. Display dimensions travel
// with the batch so the engine can map pointer coordinates to pixels.
func (mc *MaskController) handleStrokes(c *gin.Context) {
	session, ok := mc.session(c.Param("sessionId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req struct {
		DisplayWidth  float64       `json:"display_width"`
		DisplayHeight float64       `json:"display_height"`
		BrushSize     float64       `json:"brush_size"`
		Events        []strokeEvent `json:"events" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.DisplayWidth > 0 && req.DisplayHeight > 0 {
		session.engine.SetDisplaySize(req.DisplayWidth, req.DisplayHeight)
	}
	brush := mask.DefaultBrush
	if req.BrushSize > 0 {
		brush.Size = req.BrushSize
	}

	for _, ev := range req.Events {
		p := mask.Pointer{X: ev.X, Y: ev.Y}
		switch ev.Type {
		case "down":
			session.engine.PointerDown(p, brush)
		case "move":
			session.engine.PointerMove(p, brush)
		case "up":
			if _, err := session.engine.PointerUp(); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		case "leave":
			if _, err := session.engine.PointerLeave(); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown event type %q", ev.Type)})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"applied": len(req.Events)})
}

// handleClear resets both surfaces.
func (mc *MaskController) handleClear(c *gin.Context) {
	session, ok := mc.session(c.Param("sessionId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if _, err := session.engine.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// handleMaskPNG returns the alpha-only mask surface.
func (mc *MaskController) handleMaskPNG(c *gin.Context) {
	session, ok := mc.session(c.Param("sessionId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	data, err := session.engine.MaskPNG()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

// handlePreviewPNG returns the visible surface with the stroke overlay.
func (mc *MaskController) handlePreviewPNG(c *gin.Context) {
	session, ok := mc.session(c.Param("sessionId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	data, err := session.engine.VisiblePNG()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

// handleEdit sends the source image plus the painted mask to the editing
// collaborator and stores the edited image back onto the segment.
func (mc *MaskController) handleEdit(c *gin.Context) {
	session, ok := mc.session(c.Param("sessionId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req struct {
		Prompt string `json:"prompt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	maskPNG, err := session.engine.MaskPNG()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	w, h := session.engine.Size()
	edited, err := mc.editor.Edit(c.Request.Context(), imageedit.Params{
		Prompt: req.Prompt,
		Image:  session.source,
		Mask:   maskPNG,
		Size:   fmt.Sprintf("%dx%d", w, h),
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if job, ok := mc.runner.Jobs().Get(session.jobID); ok {
		dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(edited)
		job.Segments.Update(session.segmentID, func(s types.Segment) types.Segment {
			s.ImageURL = dataURL
			s.IsFallback = false
			return s
		})
		job.AddLog("Segment %s edited with mask", session.segmentID)
	}

	c.Data(http.StatusOK, "image/png", edited)
}

func (mc *MaskController) session(id string) (*maskSession, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	session, ok := mc.sessions[id]
	if !ok {
		return nil, false
	}
	if time.Since(session.touched) > config.MaskSessionTTL {
		delete(mc.sessions, id)
		return nil, false
	}
	session.touched = time.Now()
	return session, true
}

// evictExpiredLocked drops sessions idle past the TTL. Caller holds the lock.
func (mc *MaskController) evictExpiredLocked() {
	for id, session := range mc.sessions {
		if time.Since(session.touched) > config.MaskSessionTTL {
			delete(mc.sessions, id)
		}
	}
}

// fetchImage downloads and decodes the segment image the session edits.
// Previously edited segments carry their image inline as a data URL.
func (mc *MaskController) fetchImage(c *gin.Context, url string) ([]byte, image.Image, error) {
	if strings.HasPrefix(url, "data:") {
		_, encoded, ok := strings.Cut(url, ",")
		if !ok {
			return nil, nil, fmt.Errorf("malformed data url")
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, nil, err
		}
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, nil, err
		}
		return raw, img, nil
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetching image: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("decoding image: %w", err)
	}
	return raw, img, nil
}
