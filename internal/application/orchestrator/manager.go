package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/dapipe/internal/application/monitor"
	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/aescanero/dapipe/pkg/ports"
	"go.uber.org/zap"
)

const (
	// DefaultTopic is the bridge topic pipeline events are sent to
	DefaultTopic = "dapipe/pipelines"

	EventPipelineOrchestrated = "pipeline_orchestrated"
	EventPipelineProcessed    = "pipeline_processed"
	EventPipelineQueued       = "pipeline_queued"

	pathSync  = "sync"
	pathQueue = "queue"
)

// Manager coordinates pipeline runs
type Manager struct {
	registry *Registry
	monitor  *monitor.Monitor
	bridge   ports.Bridge
	store    ports.StatsStore
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	topic    string

	// statsMu orders monitor refreshes so the last persisted snapshot is
	// the newest one. Registry and monitor locks are taken one after the
	// other inside it, never nested.
	statsMu sync.Mutex
}

// NewManager creates a new pipeline manager
func NewManager(
	registry *Registry,
	mon *monitor.Monitor,
	bridge ports.Bridge,
	store ports.StatsStore,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	topic string,
) *Manager {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Manager{
		registry: registry,
		monitor:  mon,
		bridge:   bridge,
		store:    store,
		metrics:  metrics,
		logger:   logger,
		topic:    topic,
	}
}

// CreatePipeline runs a pipeline on the request path. The bridge is notified
// before returning; a notification failure does not fail the call.
func (m *Manager) CreatePipeline(ctx context.Context, id, source, destination string, payload any) (*domain.PipelineRunStats, error) {
	stats, err := m.run(ctx, pathSync, id, source, destination, payload)
	if err != nil {
		m.RecordFailure(ctx, pathSync, err)
		return nil, err
	}

	m.notify(ctx, EventPipelineOrchestrated, id, source, destination, stats)
	return stats, nil
}

// ProcessRecord runs a queued pipeline record. Failures are returned to the
// worker, which owns the quarantine decision and error accounting.
func (m *Manager) ProcessRecord(ctx context.Context, record *domain.PipelineRecord) (*domain.PipelineRunStats, error) {
	stats, err := m.run(ctx, pathQueue, record.ID, record.Source, record.Destination, record.Payload)
	if err != nil {
		return nil, err
	}

	m.notify(ctx, EventPipelineProcessed, record.ID, record.Source, record.Destination, stats)
	return stats, nil
}

// RecordFailure accounts a failed run or rejected queue file
func (m *Manager) RecordFailure(ctx context.Context, path string, err error) {
	m.metrics.RecordPipelineFailure(path)

	m.logger.Error("pipeline run failed",
		zap.String("path", path),
		zap.Error(err))

	m.refreshStats(ctx, m.monitor.IncrementErrors)
}

// run executes the pipeline and applies its outcome to the monitor
func (m *Manager) run(ctx context.Context, path, id, source, destination string, payload any) (*domain.PipelineRunStats, error) {
	start := time.Now()

	stats, err := m.registry.CreatePipeline(id, source, destination, payload)
	if err != nil {
		return nil, err
	}

	m.metrics.RecordPipelineRun(path, *stats, time.Since(start))

	if err := m.store.SaveRun(ctx, id, *stats); err != nil {
		m.logger.Warn("failed to persist run statistics",
			zap.String("pipeline_id", id),
			zap.Error(err))
	}
	m.refreshStats(ctx, func() { m.monitor.IncrementData(stats.Total()) })

	m.logger.Info("pipeline run completed",
		zap.String("pipeline_id", id),
		zap.String("path", path),
		zap.String("source", source),
		zap.String("destination", destination),
		zap.Int("nodes", stats.NodesCount),
		zap.Int("edges", stats.EdgesCount))

	return stats, nil
}

// GetPipeline returns the pipeline stored under id
func (m *Manager) GetPipeline(id string) (*domain.Pipeline, error) {
	p, ok := m.registry.GetPipeline(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPipelineNotFound, id)
	}
	return p, nil
}

// LastRun returns the latest run statistics of a pipeline. Pipelines do not
// survive a restart, so runs missing from the registry are looked up in the
// stats store.
func (m *Manager) LastRun(ctx context.Context, id string) (*domain.PipelineRunStats, error) {
	if p, ok := m.registry.GetPipeline(id); ok && p.LastRun != nil {
		return p.LastRun, nil
	}

	run, err := m.store.LoadRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load run statistics for %s: %w", id, err)
	}
	return run, nil
}

// ListPipelines returns a snapshot of all pipelines
func (m *Manager) ListPipelines() []domain.Pipeline {
	return m.registry.ListPipelines()
}

// StopPipeline stops the pipeline and refreshes the active count
func (m *Manager) StopPipeline(ctx context.Context, id string) error {
	if err := m.registry.StopPipeline(id); err != nil {
		return err
	}

	m.refreshStats(ctx, nil)

	m.logger.Info("pipeline stopped", zap.String("pipeline_id", id))
	return nil
}

// Stats returns the current monitoring statistics
func (m *Manager) Stats() domain.MonitoringStats {
	return m.monitor.GetStats()
}

// notify sends a pipeline event through the bridge. Errors are logged only.
func (m *Manager) notify(ctx context.Context, event, id, source, destination string, stats *domain.PipelineRunStats) {
	m.send(ctx, event, id, map[string]any{
		"event":        event,
		"pipeline_id":  id,
		"source":       source,
		"destination":  destination,
		"nodes":        stats.NodesCount,
		"edges":        stats.EdgesCount,
		"processed_at": stats.ProcessedAt,
	})
}

// NotifyQueued announces a record written to the work queue
func (m *Manager) NotifyQueued(ctx context.Context, record *domain.PipelineRecord, path string) {
	m.send(ctx, EventPipelineQueued, record.ID, map[string]any{
		"event":        EventPipelineQueued,
		"pipeline_id":  record.ID,
		"source":       record.Source,
		"destination":  record.Destination,
		"transformers": record.Transformers,
		"file":         path,
		"queued_at":    record.CreatedAt,
	})
}

func (m *Manager) send(ctx context.Context, event, id string, payload map[string]any) {
	if err := m.bridge.Send(ctx, domain.NewMessage(m.topic, payload)); err != nil {
		m.metrics.RecordBridgeFailure()
		m.logger.Warn("failed to notify bridge",
			zap.String("pipeline_id", id),
			zap.String("event", event),
			zap.String("topic", m.topic),
			zap.Error(err))
	}
}

// refreshStats applies update, resyncs the active count from the registry
// and persists the monitor snapshot
func (m *Manager) refreshStats(ctx context.Context, update func()) {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()

	if update != nil {
		update()
	}

	// the registry read lock is released before the monitor is touched
	active := m.registry.ActivePipelineCount()
	m.monitor.SetActivePipelines(active)
	m.metrics.SetActivePipelines(active)

	m.persistStats(ctx)
}

func (m *Manager) persistStats(ctx context.Context) {
	if err := m.store.SaveStats(ctx, m.monitor.GetStats()); err != nil {
		m.logger.Warn("failed to persist monitoring statistics", zap.Error(err))
	}
}
