package workers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aescanero/dapipe/internal/application/queue"
	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/aescanero/dapipe/pkg/ports"
	"go.uber.org/zap"
)

// MinPollInterval is the shortest sleep between two scans
const MinPollInterval = 5 * time.Second

const (
	outcomeProcessed = "processed"
	outcomeFailed    = "failed"
)

// WorkerState represents queue worker state
type WorkerState string

const (
	WorkerStateIdle     WorkerState = "idle"
	WorkerStateScanning WorkerState = "scanning"
	WorkerStateHandling WorkerState = "handling"
	WorkerStateStopped  WorkerState = "stopped"
)

// Processor runs queued records
type Processor interface {
	ProcessRecord(ctx context.Context, record *domain.PipelineRecord) (*domain.PipelineRunStats, error)
	RecordFailure(ctx context.Context, path string, err error)
}

// QueueWorker polls the work directory and processes queued records.
// Delivery is at-least-once: a crash between a successful run and the file
// move makes the file run again on the next scan.
type QueueWorker struct {
	queue     *queue.Registry
	processor Processor
	metrics   ports.MetricsCollector
	logger    *zap.Logger
	interval  time.Duration

	mu       sync.RWMutex
	state    WorkerState
	current  string
	lastScan time.Time
	started  time.Time

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewQueueWorker creates a queue worker. Intervals below MinPollInterval
// are raised to it.
func NewQueueWorker(
	q *queue.Registry,
	processor Processor,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	interval time.Duration,
) *QueueWorker {
	if interval < MinPollInterval {
		interval = MinPollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &QueueWorker{
		queue:     q,
		processor: processor,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
		state:     WorkerStateIdle,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Interval returns the effective poll interval
func (w *QueueWorker) Interval() time.Duration {
	return w.interval
}

// Start launches the polling loop
func (w *QueueWorker) Start() error {
	w.logger.Info("starting queue worker",
		zap.String("work_dir", w.queue.WorkDir()),
		zap.Duration("interval", w.interval))

	w.mu.Lock()
	w.started = time.Now()
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(w.ctx)

	return nil
}

// Shutdown stops scheduling scans and waits for the current one to finish
func (w *QueueWorker) Shutdown(ctx context.Context) error {
	w.logger.Info("shutting down queue worker")

	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("queue worker shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

// State returns the current worker state
func (w *QueueWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// LastScan returns when the last scan finished, zero before the first one
func (w *QueueWorker) LastScan() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastScan
}

// Started returns when Start was called, zero if it was not
func (w *QueueWorker) Started() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// run is the main worker loop
func (w *QueueWorker) run(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.setState(WorkerStateStopped, "")
			w.logger.Info("queue worker stopped")
			return
		case <-timer.C:
		}

		// the scan itself is not interrupted by shutdown
		if err := w.ScanOnce(context.WithoutCancel(ctx)); err != nil {
			w.logger.Error("pipeline queue scan failed", zap.Error(err))
		}

		timer.Reset(w.interval)
	}
}

// ScanOnce handles every record currently in the work directory
func (w *QueueWorker) ScanOnce(ctx context.Context) error {
	start := time.Now()
	w.setState(WorkerStateScanning, "")
	defer func() {
		w.mu.Lock()
		w.state = WorkerStateIdle
		w.current = ""
		w.lastScan = time.Now()
		w.mu.Unlock()
		w.metrics.RecordScan(time.Since(start))
	}()

	workDir := w.queue.WorkDir()
	entries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(workDir, 0o755); err != nil {
				return fmt.Errorf("%w: failed to create %s: %v", domain.ErrIO, workDir, err)
			}
			return nil
		}
		return fmt.Errorf("%w: failed to read %s: %v", domain.ErrIO, workDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !queue.IsQueueFile(entry.Name()) {
			continue
		}

		path := filepath.Join(workDir, entry.Name())
		w.setState(WorkerStateHandling, path)

		if err := w.handleFile(ctx, path); err != nil {
			w.logger.Error("failed to handle pipeline file",
				zap.String("file", path),
				zap.Error(err))
			w.processor.RecordFailure(ctx, "queue", err)
			w.metrics.RecordQueueFile(outcomeFailed)

			if err := moveToFolder(path, w.queue.FailedDir()); err != nil {
				return err
			}
			continue
		}

		w.metrics.RecordQueueFile(outcomeProcessed)
		if err := moveToFolder(path, w.queue.ProcessedDir()); err != nil {
			return err
		}
	}

	return nil
}

// handleFile decodes one record and runs it
func (w *QueueWorker) handleFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: failed to read pipeline file %s: %v", domain.ErrIO, path, err)
	}

	record, err := w.queue.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to parse pipeline file %s: %w", path, err)
	}

	stats, err := w.processor.ProcessRecord(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to run pipeline %s: %w", record.ID, err)
	}

	w.logger.Info("queued pipeline processed",
		zap.String("file", path),
		zap.String("pipeline_id", record.ID),
		zap.Int("nodes", stats.NodesCount),
		zap.Int("edges", stats.EdgesCount))

	return nil
}

func (w *QueueWorker) setState(state WorkerState, current string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = state
	w.current = current
}

// moveToFolder moves path into folder, creating folder when needed
func moveToFolder(path, folder string) error {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create %s: %v", domain.ErrIO, folder, err)
	}

	target := filepath.Join(folder, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("%w: failed to move %s -> %s: %v", domain.ErrIO, path, target, err)
	}

	return nil
}
