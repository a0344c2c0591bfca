package workers

import (
	"sync"
	"time"

	"github.com/aescanero/dapipe/internal/application/queue"
	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/aescanero/dapipe/pkg/ports"
	"go.uber.org/zap"
)

// staleScanFactor is how many poll intervals may pass without a scan
// before the worker is reported unhealthy
const staleScanFactor = 3

// HealthMonitor monitors queue worker health
type HealthMonitor struct {
	worker   *QueueWorker
	queue    *queue.Registry
	metrics  ports.MetricsCollector
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	onChange func(healthy bool)
}

// HealthStatus represents the health status of the queue worker
type HealthStatus struct {
	State     WorkerState          `json:"state"`
	LastScan  time.Time            `json:"last_scan,omitempty"`
	Queue     domain.QueueSnapshot `json:"queue"`
	Healthy   bool                 `json:"healthy"`
	Timestamp time.Time            `json:"timestamp"`
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(
	worker *QueueWorker,
	q *queue.Registry,
	metrics ports.MetricsCollector,
	interval time.Duration,
	logger *zap.Logger,
) *HealthMonitor {
	return &HealthMonitor{
		worker:   worker,
		queue:    q,
		metrics:  metrics,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// OnChange registers a callback invoked after every check
func (h *HealthMonitor) OnChange(fn func(healthy bool)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
}

// Start starts the health monitor
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop stops the health monitor
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.stopCh)
}

// run is the main health monitoring loop
func (h *HealthMonitor) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Check()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.Check()
		}
	}
}

// Check computes the health status, records queue depth and logs it
func (h *HealthMonitor) Check() *HealthStatus {
	status := h.GetStatus()

	h.logger.Debug("queue worker health check",
		zap.String("state", string(status.State)),
		zap.Int("pending", status.Queue.Pending),
		zap.Int("processed", status.Queue.Processed),
		zap.Int("failed", status.Queue.Failed),
		zap.Bool("healthy", status.Healthy))

	h.metrics.SetQueueDepth(status.Queue)

	if !status.Healthy {
		h.logger.Warn("queue worker is unhealthy",
			zap.String("state", string(status.State)),
			zap.Time("last_scan", status.LastScan))
	}

	h.mu.Lock()
	onChange := h.onChange
	h.mu.Unlock()

	if onChange != nil {
		onChange(status.Healthy)
	}

	return status
}

// GetStatus returns the current health status
func (h *HealthMonitor) GetStatus() *HealthStatus {
	now := h.now()
	state := h.worker.State()
	lastScan := h.worker.LastScan()

	snapshot, err := h.queue.Snapshot()
	if err != nil {
		h.logger.Warn("failed to snapshot pipeline queue", zap.Error(err))
	}

	return &HealthStatus{
		State:     state,
		LastScan:  lastScan,
		Queue:     snapshot,
		Healthy:   h.healthy(state, lastScan, now),
		Timestamp: now,
	}
}

// IsHealthy returns true if the queue worker is healthy
func (h *HealthMonitor) IsHealthy() bool {
	return h.GetStatus().Healthy
}

func (h *HealthMonitor) healthy(state WorkerState, lastScan, now time.Time) bool {
	if state == WorkerStateStopped {
		return false
	}

	window := staleScanFactor * h.worker.Interval()

	if lastScan.IsZero() {
		started := h.worker.Started()
		return started.IsZero() || now.Sub(started) < window
	}

	return now.Sub(lastScan) < window
}
