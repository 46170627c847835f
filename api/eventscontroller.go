package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"storyreel/pipeline"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsController streams job status snapshots over a websocket so the
// client can render progress without polling.
type EventsController struct {
	runner *pipeline.Runner
}

// NewEventsController creates the controller.
func NewEventsController(runner *pipeline.Runner) *EventsController {
	return &EventsController{runner: runner}
}

// Register attaches the websocket route.
func (ec *EventsController) Register(r *gin.Engine) {
	r.GET("/api/jobs/:id/events", ec.handleEvents)
}

// handleEvents upgrades to a websocket and pushes a fresh status snapshot on
// every job change, with a periodic keepalive snapshot in between.
func (ec *EventsController) handleEvents(c *gin.Context) {
	job, ok := ec.runner.Jobs().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	changes, cancel := job.Subscribe()
	defer cancel()

	// Drain reads so client close frames are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	if err := conn.WriteJSON(job.Status()); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-changes:
		case <-keepalive.C:
		}
		if err := conn.WriteJSON(job.Status()); err != nil {
			return
		}
	}
}
