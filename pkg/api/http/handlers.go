package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrchestrateRequest represents a synchronous pipeline run request
type OrchestrateRequest struct {
	PipelineID  string `json:"pipeline_id"`
	Source      string `json:"source" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	Payload     any    `json:"payload"`
}

// OrchestrateResponse represents a synchronous pipeline run response
type OrchestrateResponse struct {
	Message    string `json:"message"`
	PipelineID string `json:"pipeline_id"`
	Nodes      int    `json:"nodes"`
	Edges      int    `json:"edges"`
}

// QueueRequest represents a request to queue a pipeline record
type QueueRequest struct {
	ID           string   `json:"id"`
	Source       string   `json:"source" binding:"required"`
	Transformers []string `json:"transformers"`
	Destination  string   `json:"destination" binding:"required"`
	Payload      any      `json:"payload"`
}

// QueueResponse represents a queued pipeline record
type QueueResponse struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// ExtractResponse represents a normalized graph
type ExtractResponse struct {
	NodesCount int                    `json:"nodes_count"`
	EdgesCount int                    `json:"edges_count"`
	Graph      *domain.ExtractedGraph `json:"graph"`
}

// maxExtractBody bounds documents posted to the extract endpoint
const maxExtractBody = 32 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// handleRoot describes the service
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "dapipe",
		"version": s.version,
		"endpoints": []string{
			"GET /health",
			"GET /metrics",
			"GET /api/v1/monitor",
			"POST /api/v1/orchestrate",
			"POST /api/v1/extract",
			"POST /api/v1/queue",
			"GET /api/v1/queue",
			"GET /api/v1/pipelines",
			"GET /api/v1/pipelines/:id",
			"GET /api/v1/pipelines/:id/run",
			"POST /api/v1/pipelines/:id/stop",
			"GET /api/v1/events/ws",
		},
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
		return
	}

	status := s.health.GetStatus()
	code := http.StatusOK
	label := "healthy"
	if !status.Healthy {
		code = http.StatusServiceUnavailable
		label = "unhealthy"
	}

	c.JSON(code, gin.H{
		"status":    label,
		"timestamp": status.Timestamp.UTC(),
		"checks": gin.H{
			"worker": status,
		},
	})
}

// handleMonitor returns the monitoring statistics
func (s *Server) handleMonitor(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.Stats())
}

// handleOrchestrate runs a pipeline on the request path
func (s *Server) handleOrchestrate(c *gin.Context) {
	var req OrchestrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if req.PipelineID == "" {
		req.PipelineID = s.queue.GenerateID()
	}

	stats, err := s.manager.CreatePipeline(c.Request.Context(), req.PipelineID, req.Source, req.Destination, req.Payload)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrExtraction) {
			status = http.StatusUnprocessableEntity
		}
		abortWithError(c, status, "ORCHESTRATION_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, OrchestrateResponse{
		Message:    "Pipeline orchestrated successfully",
		PipelineID: req.PipelineID,
		Nodes:      stats.NodesCount,
		Edges:      stats.EdgesCount,
	})
}

// handleExtract normalizes the posted document without running a pipeline
func (s *Server) handleExtract(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxExtractBody))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	graph, err := s.extractor.ExtractBytes(raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "EXTRACTION_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, ExtractResponse{
		NodesCount: len(graph.Nodes),
		EdgesCount: len(graph.Edges),
		Graph:      graph,
	})
}

// handleQueue writes a pipeline record for the queue worker
func (s *Server) handleQueue(c *gin.Context) {
	var req QueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if len(req.Transformers) == 0 {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "at least one transformer is required")
		return
	}

	if req.ID == "" {
		req.ID = s.queue.GenerateID()
	}

	record := domain.NewPipelineRecord(req.ID, req.Source, req.Transformers, req.Destination, req.Payload)
	path, err := s.queue.Persist(record)
	if err != nil {
		if errors.Is(err, domain.ErrQueueConflict) {
			abortWithError(c, http.StatusConflict, "QUEUE_CONFLICT", err.Error())
			return
		}
		if errors.Is(err, domain.ErrIO) {
			s.logger.Error("failed to queue pipeline", zap.String("pipeline_id", req.ID), zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "QUEUE_FAILED", err.Error())
			return
		}
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	s.manager.NotifyQueued(c.Request.Context(), record, path)

	c.JSON(http.StatusAccepted, QueueResponse{
		ID:   req.ID,
		Path: path,
	})
}

// handleQueueSnapshot returns the work queue file counts
func (s *Server) handleQueueSnapshot(c *gin.Context) {
	snapshot, err := s.queue.Snapshot()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "QUEUE_UNAVAILABLE", err.Error())
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// handleListPipelines lists every known pipeline
func (s *Server) handleListPipelines(c *gin.Context) {
	pipelines := s.manager.ListPipelines()

	c.JSON(http.StatusOK, gin.H{
		"pipelines": pipelines,
		"total":     len(pipelines),
	})
}

// handleGetPipeline returns one pipeline
func (s *Server) handleGetPipeline(c *gin.Context) {
	pipeline, err := s.manager.GetPipeline(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Pipeline not found")
		return
	}

	c.JSON(http.StatusOK, pipeline)
}

// handleLastRun returns the latest run statistics of a pipeline, including
// runs recorded before a restart
func (s *Server) handleLastRun(c *gin.Context) {
	run, err := s.manager.LastRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrPipelineNotFound) {
			abortWithError(c, http.StatusNotFound, "NOT_FOUND", "No run recorded for pipeline")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "RUN_UNAVAILABLE", err.Error())
		return
	}

	c.JSON(http.StatusOK, run)
}

// handleStopPipeline marks a pipeline as stopped
func (s *Server) handleStopPipeline(c *gin.Context) {
	id := c.Param("id")

	if err := s.manager.StopPipeline(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrPipelineNotFound) {
			abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Pipeline not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "STOP_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pipeline_id": id,
		"status":      domain.StatusStopped().String(),
	})
}
