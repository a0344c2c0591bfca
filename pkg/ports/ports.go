package ports

import (
	"context"
	"time"

	"github.com/aescanero/dapipe/pkg/domain"
)

// Bridge delivers pipeline notifications to an external flow engine.
// Callers treat failures as non-fatal.
type Bridge interface {
	Send(ctx context.Context, msg domain.Message) error
}

// StatsStore persists run statistics across restarts
type StatsStore interface {
	SaveStats(ctx context.Context, stats domain.MonitoringStats) error
	LoadStats(ctx context.Context) (*domain.MonitoringStats, error)
	SaveRun(ctx context.Context, pipelineID string, run domain.PipelineRunStats) error
	// LoadRun returns an error wrapping domain.ErrPipelineNotFound when no
	// run is stored for pipelineID
	LoadRun(ctx context.Context, pipelineID string) (*domain.PipelineRunStats, error)
}

// MetricsCollector records pipeline engine metrics
type MetricsCollector interface {
	RecordPipelineRun(path string, run domain.PipelineRunStats, duration time.Duration)
	RecordPipelineFailure(path string)
	RecordQueueFile(outcome string)
	RecordBridgeFailure()
	RecordScan(duration time.Duration)
	SetActivePipelines(count int)
	SetQueueDepth(snapshot domain.QueueSnapshot)
}
