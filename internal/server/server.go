// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/hermes-playout/internal/api"
	"github.com/stwalsh4118/hermes-playout/internal/config"
	"github.com/stwalsh4118/hermes-playout/internal/db"
	"github.com/stwalsh4118/hermes-playout/internal/logger"
	"github.com/stwalsh4118/hermes-playout/internal/middleware"
	"github.com/stwalsh4118/hermes-playout/internal/playout"
	"github.com/stwalsh4118/hermes-playout/internal/telemetry"
	"github.com/stwalsh4118/hermes-playout/internal/worker"
)

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	db      *db.DB
	service *playout.Service
	metrics *telemetry.Metrics
	workers *worker.Manager
	router  *gin.Engine
	server  *http.Server
}

// New creates a new server instance. workers may be nil when timelines are built on demand only.
func New(cfg *config.Config, database *db.DB, service *playout.Service, metrics *telemetry.Metrics, workers *worker.Manager) *Server {
	return &Server{
		config:  cfg,
		db:      database,
		service: service,
		metrics: metrics,
		workers: workers,
	}
}

// Router returns the configured router, building it on first use
func (s *Server) Router() *gin.Engine {
	if s.router == nil {
		s.setupRouter()
	}
	return s.router
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(gin.Recovery())
	s.router.Use(cors.Default())

	if s.config.Metrics.Enabled && s.metrics != nil {
		s.router.GET(s.config.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	apiGroup := s.router.Group("/api")

	var workers api.WorkerStatus
	if s.workers != nil {
		workers = s.workers
	}
	api.SetupHealthRoutes(apiGroup, s.db, workers)
	api.SetupPlayoutRoutes(apiGroup, s.service, s.config.Playout.Lookahead)
}

// Start starts the channel workers and then serves HTTP until Shutdown
func (s *Server) Start(ctx context.Context) error {
	router := s.Router()

	if s.workers != nil {
		if err := s.workers.Start(ctx); err != nil {
			return fmt.Errorf("failed to start channel workers: %w", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:           addr,
		Handler:        router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Msg("Starting HTTP server")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Shutting down server gracefully")

	if s.workers != nil {
		s.workers.Stop()
	}

	// Check if server was started before attempting shutdown
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	logger.Log.Info().Msg("Server stopped")
	return nil
}
