// Package monitor keeps the process-wide run statistics.
package monitor

import (
	"sync"
	"time"

	"github.com/aescanero/dapipe/pkg/domain"
)

// Monitor tracks aggregate pipeline statistics. Every mutation stamps
// LastUpdate.
type Monitor struct {
	mu    sync.RWMutex
	stats domain.MonitoringStats
	now   func() time.Time
}

// New creates a monitor with zeroed counters
func New() *Monitor {
	m := &Monitor{now: func() time.Time { return time.Now().UTC() }}
	m.stats.LastUpdate = m.now()
	return m
}

// GetStats returns a copy of the current statistics
func (m *Monitor) GetStats() domain.MonitoringStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// IncrementData adds amount to the processed data counter
func (m *Monitor) IncrementData(amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.DataProcessed += amount
	m.stats.LastUpdate = m.now()
}

// IncrementErrors adds one to the error counter
func (m *Monitor) IncrementErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Errors++
	m.stats.LastUpdate = m.now()
}

// SetActivePipelines records the number of active pipelines
func (m *Monitor) SetActivePipelines(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.ActivePipelines = n
	m.stats.LastUpdate = m.now()
}

// Restore seeds the durable counters from persisted statistics. Counters
// never move backwards, so a snapshot smaller than the live value is ignored
// field by field. The active pipeline count is left alone.
func (m *Monitor) Restore(saved domain.MonitoringStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if saved.DataProcessed > m.stats.DataProcessed {
		m.stats.DataProcessed = saved.DataProcessed
	}
	if saved.Errors > m.stats.Errors {
		m.stats.Errors = saved.Errors
	}
	m.stats.LastUpdate = m.now()
}
