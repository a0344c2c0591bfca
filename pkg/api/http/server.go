package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aescanero/dapipe/internal/application/extractor"
	"github.com/aescanero/dapipe/internal/application/orchestrator"
	"github.com/aescanero/dapipe/internal/application/queue"
	"github.com/aescanero/dapipe/internal/application/workers"
	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// GraphExtractor normalizes raw documents for the extract endpoint
type GraphExtractor interface {
	ExtractBytes(raw []byte) (*domain.ExtractedGraph, error)
}

// Server represents the HTTP API server
type Server struct {
	router    *gin.Engine
	server    *http.Server
	manager   *orchestrator.Manager
	queue     *queue.Registry
	health    *workers.HealthMonitor
	extractor GraphExtractor
	version   string
	logger    *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port    int
	Version string
	Manager *orchestrator.Manager
	Queue   *queue.Registry
	// Extractor defaults to a bloodhound extractor
	Extractor GraphExtractor
	// Health is optional; without it /health only reports the process is up
	Health *workers.HealthMonitor
	// Gatherer serves /metrics, the default registry when nil
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger(cfg.Logger))

	s := &Server{
		router:    router,
		manager:   cfg.Manager,
		queue:     cfg.Queue,
		health:    cfg.Health,
		extractor: cfg.Extractor,
		version:   cfg.Version,
		logger:    cfg.Logger,
	}
	if s.extractor == nil {
		s.extractor = extractor.New()
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s.setupRoutes(gatherer)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/monitor", s.handleMonitor)
		v1.POST("/orchestrate", s.handleOrchestrate)
		v1.POST("/extract", s.handleExtract)

		v1.POST("/queue", s.handleQueue)
		v1.GET("/queue", s.handleQueueSnapshot)

		v1.GET("/pipelines", s.handleListPipelines)
		v1.GET("/pipelines/:id", s.handleGetPipeline)
		v1.GET("/pipelines/:id/run", s.handleLastRun)
		v1.POST("/pipelines/:id/stop", s.handleStopPipeline)
	}
}

// SetupWebSocket adds the event stream handler to the server
func (s *Server) SetupWebSocket(handler interface {
	HandleEventStream(*gin.Context)
}) {
	s.router.GET("/api/v1/events/ws", handler.HandleEventStream)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
