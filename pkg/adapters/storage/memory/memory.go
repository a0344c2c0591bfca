package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aescanero/dapipe/pkg/domain"
)

// StatsStore implements ports.StatsStore using in-memory values.
// Nothing survives a restart.
type StatsStore struct {
	mu    sync.RWMutex
	stats *domain.MonitoringStats
	runs  map[string]domain.PipelineRunStats
}

// NewStatsStore creates a new in-memory stats store
func NewStatsStore() *StatsStore {
	return &StatsStore{
		runs: make(map[string]domain.PipelineRunStats),
	}
}

// SaveStats stores a copy of the monitoring statistics
func (s *StatsStore) SaveStats(ctx context.Context, stats domain.MonitoringStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats = &stats
	return nil
}

// LoadStats returns the last saved statistics, or nil when none were saved
func (s *StatsStore) LoadStats(ctx context.Context) (*domain.MonitoringStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stats == nil {
		return nil, nil
	}
	stats := *s.stats
	return &stats, nil
}

// SaveRun stores the last run of a pipeline
func (s *StatsStore) SaveRun(ctx context.Context, pipelineID string, run domain.PipelineRunStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[pipelineID] = run
	return nil
}

// LoadRun returns the last run of a pipeline
func (s *StatsStore) LoadRun(ctx context.Context, pipelineID string) (*domain.PipelineRunStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[pipelineID]
	if !ok {
		return nil, fmt.Errorf("%w: no run stored for %s", domain.ErrPipelineNotFound, pipelineID)
	}
	return &run, nil
}
