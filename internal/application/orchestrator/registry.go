package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/dapipe/internal/application/extractor"
	"github.com/aescanero/dapipe/pkg/domain"
)

// Extractor normalizes a decoded payload into a graph
type Extractor interface {
	Extract(payload any) (*domain.ExtractedGraph, error)
}

// Registry is the in-memory source of truth for pipelines
type Registry struct {
	extractor Extractor

	mu        sync.RWMutex
	pipelines map[string]*domain.Pipeline
}

// NewRegistry creates a registry. A nil extractor selects the default one.
func NewRegistry(ext Extractor) *Registry {
	if ext == nil {
		ext = extractor.New()
	}
	return &Registry{
		extractor: ext,
		pipelines: make(map[string]*domain.Pipeline),
	}
}

// CreatePipeline extracts payload, stores an active pipeline under id and
// returns the run statistics. An existing entry with the same id is replaced.
func (r *Registry) CreatePipeline(id, source, destination string, payload any) (*domain.PipelineRunStats, error) {
	graph, err := r.extractor.Extract(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to extract payload for pipeline %s: %w", id, err)
	}

	now := time.Now().UTC()
	stats := domain.PipelineRunStats{
		NodesCount:  len(graph.Nodes),
		EdgesCount:  len(graph.Edges),
		ProcessedAt: now,
	}

	pipeline := &domain.Pipeline{
		ID:          id,
		Source:      source,
		Destination: destination,
		Status:      domain.StatusActive(),
		CreatedAt:   now,
		LastRun:     &stats,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pipelines[id] = pipeline
	result := stats
	return &result, nil
}

// GetPipeline returns a copy of the pipeline stored under id
func (r *Registry) GetPipeline(id string) (*domain.Pipeline, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pipelines[id]
	if !ok {
		return nil, false
	}
	cp := copyPipeline(p)
	return &cp, true
}

// ListPipelines returns a snapshot of all pipelines in no particular order
func (r *Registry) ListPipelines() []domain.Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]domain.Pipeline, 0, len(r.pipelines))
	for _, p := range r.pipelines {
		list = append(list, copyPipeline(p))
	}
	return list
}

// StopPipeline marks the pipeline as stopped
func (r *Registry) StopPipeline(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pipelines[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrPipelineNotFound, id)
	}
	p.Status = domain.StatusStopped()
	return nil
}

// ActivePipelineCount counts pipelines whose status is active
func (r *Registry) ActivePipelineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeCountLocked()
}

func (r *Registry) activeCountLocked() int {
	count := 0
	for _, p := range r.pipelines {
		if p.Status.IsActive() {
			count++
		}
	}
	return count
}

func copyPipeline(p *domain.Pipeline) domain.Pipeline {
	cp := *p
	if p.LastRun != nil {
		run := *p.LastRun
		cp.LastRun = &run
	}
	return cp
}
