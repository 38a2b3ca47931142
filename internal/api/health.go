package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stwalsh4118/hermes-playout/internal/db"
)

const healthCheckTimeout = 2 * time.Second

// HealthResponse represents the response from the health check endpoint
type HealthResponse struct {
	Status   string         `json:"status"`
	Database string         `json:"database"`
	Time     string         `json:"time"`
	Workers  *WorkersHealth `json:"workers,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// WorkersHealth reports the background channel workers
type WorkersHealth struct {
	Running  int         `json:"running"`
	Channels []uuid.UUID `json:"channels"`
}

// WorkerStatus lists channels with a running worker
type WorkerStatus interface {
	Running() []uuid.UUID
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db      *db.DB
	workers WorkerStatus
}

// NewHealthHandler creates a new health check handler. workers may be nil when the
// process runs without background builds.
func NewHealthHandler(database *db.DB, workers WorkerStatus) *HealthHandler {
	return &HealthHandler{db: database, workers: workers}
}

// Check handles GET /api/health. A failed database ping reports 503; worker state is
// informational only.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	response := HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Details: make(map[string]any),
	}

	if h.workers != nil {
		running := h.workers.Running()
		response.Workers = &WorkersHealth{Running: len(running), Channels: running}
	}

	if err := h.db.Health(ctx); err != nil {
		response.Status = "degraded"
		response.Database = "unhealthy"
		response.Details["database_error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response.Database = "healthy"
	c.JSON(http.StatusOK, response)
}

// SetupHealthRoutes registers health check routes
func SetupHealthRoutes(apiGroup *gin.RouterGroup, database *db.DB, workers WorkerStatus) {
	handler := NewHealthHandler(database, workers)
	apiGroup.GET("/health", handler.Check)
}
