package domain

import "time"

// MonitoringStats holds process-wide run statistics.
// DataProcessed and Errors only ever grow.
type MonitoringStats struct {
	ActivePipelines int       `json:"active_pipelines"`
	DataProcessed   uint64    `json:"data_processed"`
	Errors          uint64    `json:"errors"`
	LastUpdate      time.Time `json:"last_update"`
}
