package api

import (
	"github.com/gin-gonic/gin"

	"storyreel/config"
	"storyreel/imageedit"
	"storyreel/pipeline"
	"storyreel/storage"
)

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(cfg config.Config, runner *pipeline.Runner, artifacts *storage.ArtifactStore, editor *imageedit.Client) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	jobs := NewJobsController(runner, artifacts)
	jobs.Register(r)

	masks := NewMaskController(cfg, runner, editor)
	masks.Register(r)

	events := NewEventsController(runner)
	events.Register(r)

	RegisterHealthRoutes(r)
	return r
}
