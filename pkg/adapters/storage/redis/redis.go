package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	statsKey  = "dapipe:stats"
	runPrefix = "dapipe:runs:"
)

// StatsStore implements ports.StatsStore using Redis
type StatsStore struct {
	client *redis.Client
	logger *zap.Logger
	runTTL time.Duration
}

// NewStatsStore creates a new Redis stats store. Run entries expire after
// runTTL; the aggregate statistics never expire.
func NewStatsStore(client *redis.Client, runTTL time.Duration, logger *zap.Logger) *StatsStore {
	return &StatsStore{
		client: client,
		logger: logger,
		runTTL: runTTL,
	}
}

// SaveStats persists the monitoring statistics
func (s *StatsStore) SaveStats(ctx context.Context, stats domain.MonitoringStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	if err := s.client.Set(ctx, statsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}

	s.logger.Debug("stats saved",
		zap.Uint64("data_processed", stats.DataProcessed),
		zap.Uint64("errors", stats.Errors))

	return nil
}

// LoadStats retrieves the monitoring statistics, or nil when none are stored
func (s *StatsStore) LoadStats(ctx context.Context) (*domain.MonitoringStats, error) {
	data, err := s.client.Get(ctx, statsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	var stats domain.MonitoringStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}

	return &stats, nil
}

// SaveRun persists the last run of a pipeline with TTL
func (s *StatsStore) SaveRun(ctx context.Context, pipelineID string, run domain.PipelineRunStats) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	if err := s.client.Set(ctx, getRunKey(pipelineID), data, s.runTTL).Err(); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// LoadRun retrieves the last run of a pipeline
func (s *StatsStore) LoadRun(ctx context.Context, pipelineID string) (*domain.PipelineRunStats, error) {
	data, err := s.client.Get(ctx, getRunKey(pipelineID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: no run stored for %s", domain.ErrPipelineNotFound, pipelineID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run domain.PipelineRunStats
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}

	return &run, nil
}

// getRunKey returns the Redis key for a pipeline run
func getRunKey(pipelineID string) string {
	return runPrefix + pipelineID
}
