package domain

import "time"

// StatusKind enumerates pipeline states
type StatusKind string

const (
	StatusKindActive  StatusKind = "active"
	StatusKindPaused  StatusKind = "paused"
	StatusKindStopped StatusKind = "stopped"
	StatusKindError   StatusKind = "error"
)

// PipelineStatus is the state of a pipeline. Reason is only carried by the
// error kind. Paused and error have no producing operation yet.
type PipelineStatus struct {
	Kind   StatusKind `json:"kind"`
	Reason string     `json:"reason,omitempty"`
}

func StatusActive() PipelineStatus  { return PipelineStatus{Kind: StatusKindActive} }
func StatusPaused() PipelineStatus  { return PipelineStatus{Kind: StatusKindPaused} }
func StatusStopped() PipelineStatus { return PipelineStatus{Kind: StatusKindStopped} }

// StatusError builds an error status carrying reason
func StatusError(reason string) PipelineStatus {
	return PipelineStatus{Kind: StatusKindError, Reason: reason}
}

// IsActive reports whether the status is active
func (s PipelineStatus) IsActive() bool {
	return s.Kind == StatusKindActive
}

func (s PipelineStatus) String() string {
	if s.Kind == StatusKindError && s.Reason != "" {
		return string(s.Kind) + ": " + s.Reason
	}
	return string(s.Kind)
}

// PipelineRunStats is an immutable snapshot of one pipeline run
type PipelineRunStats struct {
	NodesCount  int       `json:"nodes_count"`
	EdgesCount  int       `json:"edges_count"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Total returns the amount of data a run contributes to the processed counter
func (s PipelineRunStats) Total() uint64 {
	return uint64(s.NodesCount + s.EdgesCount)
}

// Pipeline is a registered pipeline and the outcome of its last run
type Pipeline struct {
	ID          string            `json:"id"`
	Source      string            `json:"source"`
	Destination string            `json:"destination"`
	Status      PipelineStatus    `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	LastRun     *PipelineRunStats `json:"last_run,omitempty"`
}

// PipelineRecord is a queued pipeline submission as stored on disk
type PipelineRecord struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Transformers []string  `json:"transformers"`
	Destination  string    `json:"destination"`
	Payload      any       `json:"payload"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewPipelineRecord creates a record stamped with the current time
func NewPipelineRecord(id, source string, transformers []string, destination string, payload any) *PipelineRecord {
	if transformers == nil {
		transformers = []string{}
	}
	return &PipelineRecord{
		ID:           id,
		Source:       source,
		Transformers: transformers,
		Destination:  destination,
		Payload:      payload,
		CreatedAt:    time.Now().UTC(),
	}
}

// QueueSnapshot counts the files in each queue directory
type QueueSnapshot struct {
	Pending   int `json:"pending"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}
