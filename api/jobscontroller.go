package api

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storyreel/pipeline"
	"storyreel/storage"
	"storyreel/types"
)

// JobsController serves the pipeline job lifecycle: create from an audio
// upload, inspect status, edit prompts, trigger generation and export.
type JobsController struct {
	runner    *pipeline.Runner
	artifacts *storage.ArtifactStore
}

// NewJobsController creates the controller.
func NewJobsController(runner *pipeline.Runner, artifacts *storage.ArtifactStore) *JobsController {
	return &JobsController{runner: runner, artifacts: artifacts}
}

// Register attaches the job routes.
func (jc *JobsController) Register(r *gin.Engine) {
	r.POST("/api/jobs", jc.handleCreateJob)
	r.GET("/api/jobs/:id", jc.handleStatus)
	r.POST("/api/jobs/:id/custom-prompt", jc.handleCustomPrompt)
	r.POST("/api/jobs/:id/refine-prompts", jc.handleRefinePrompts)
	r.PUT("/api/jobs/:id/segments/:segmentId/prompt", jc.handleEditPrompt)
	r.POST("/api/jobs/:id/generate", jc.handleGenerateAll)
	r.POST("/api/jobs/:id/segments/:segmentId/generate", jc.handleGenerateOne)
	r.POST("/api/jobs/:id/export", jc.handleExport)
	r.GET("/api/jobs/:id/artifact", jc.handleArtifact)
}

// handleCreateJob accepts a multipart audio upload plus its duration, starts
// transcription and prompt synthesis in the background, and returns the job
// id immediately.
func (jc *JobsController) handleCreateJob(c *gin.Context) {
	durationStr := c.PostForm("duration_seconds")
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil || duration <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration_seconds must be a positive number"})
		return
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	job := jc.runner.CreateJob(c.PostForm("aspect_ratio"))

	// Processing outlives the request, so it cannot run on the request
	// context. The file handle is closed by the worker, not the handler.
	go func() {
		defer file.Close()
		if err := jc.runner.ProcessAudio(context.Background(), job, file, fileHeader.Filename, duration); err != nil {
			log.Printf("job %s processing failed: %v", job.ID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"id": job.ID})
}

// handleStatus returns the full job snapshot.
func (jc *JobsController) handleStatus(c *gin.Context) {
	job, ok := jc.runner.Jobs().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job.Status())
}

// handleCustomPrompt replaces the segment list from a free-form instruction.
func (jc *JobsController) handleCustomPrompt(c *gin.Context) {
	job, ok := jc.runner.Jobs().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	var req struct {
		Instruction string `json:"instruction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := jc.runner.RunCustomPrompt(c.Request.Context(), job, req.Instruction); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job.Status())
}

// handleRefinePrompts re-synthesizes all prompts with one LLM call per
// segment for tighter transcript alignment.
func (jc *JobsController) handleRefinePrompts(c *gin.Context) {
	job, ok := jc.runner.Jobs().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	if err := jc.runner.RefinePrompts(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job.Status())
}

// handleEditPrompt overwrites a single segment's prompt.
func (jc *JobsController) handleEditPrompt(c *gin.Context) {
	job, ok := jc.runner.Jobs().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	var req struct {
		Prompt string `json:"prompt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := jc.runner.EditPrompt(job, c.Param("segmentId"), req.Prompt); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job.Status())
}

// handleGenerateAll starts the sequential batch generation in the background.
func (jc *JobsController) handleGenerateAll(c *gin.Context) {
	job, ok := jc.runner.Jobs().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if job.State() == types.StateGenerating {
		c.JSON(http.StatusConflict, gin.H{"error": "generation already in progress"})
		return
	}

	go func() {
		if err := jc.runner.GenerateAll(context.Background(), job); err != nil {
			log.Printf("job %s generation failed: %v", job.ID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"id": job.ID, "state": types.StateGenerating})
}

// handleGenerateOne regenerates a single segment synchronously.
func (jc *JobsController) handleGenerateOne(c *gin.Context) {
	job, ok := jc.runner.Jobs().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	if err := jc.runner.GenerateOne(c.Request.Context(), job, c.Param("segmentId")); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job.Status())
}

// handleExport produces the requested artifact. With an S3 store configured
// the artifact is uploaded and its key returned; otherwise the bytes stream
// back as an attachment.
func (jc *JobsController) handleExport(c *gin.Context) {
	job, ok := jc.runner.Jobs().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	format := types.ExportFormat(c.DefaultQuery("format", string(types.ExportVideo)))
	if format != types.ExportVideo && format != types.ExportArchive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be video or zip"})
		return
	}

	artifact, err := jc.runner.Export(c.Request.Context(), job, format)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if jc.artifacts.Enabled() {
		key, err := jc.artifacts.Put(c.Request.Context(), job.ID, artifact)
		if err != nil {
			log.Printf("artifact upload for job %s: %v", job.ID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		job.SetExportKey(format, key)
		c.JSON(http.StatusOK, gin.H{
			"key":      key,
			"filename": artifact.Filename,
			"degraded": artifact.Degraded,
		})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
	if artifact.Degraded {
		c.Header("X-Export-Degraded", "true")
	}
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}

// handleArtifact returns the stored object key for an earlier export after
// confirming the object is still present in the bucket.
func (jc *JobsController) handleArtifact(c *gin.Context) {
	job, ok := jc.runner.Jobs().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if !jc.artifacts.Enabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact storage is not configured"})
		return
	}

	format := types.ExportFormat(c.DefaultQuery("format", string(types.ExportVideo)))
	key := job.ExportKey(format)
	if key == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no artifact has been exported for this format"})
		return
	}

	present, err := jc.artifacts.Exists(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if !present {
		c.JSON(http.StatusGone, gin.H{"error": "artifact is no longer available"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key})
}
