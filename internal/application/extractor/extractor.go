package extractor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/google/uuid"
)

const (
	// DefaultSource names the input dialect in graph metadata
	DefaultSource = "bloodhound"

	unknownType = "unknown"
)

// GraphExtractor turns payloads into graphs. It holds no state between calls.
type GraphExtractor struct {
	source string
	newID  func() string
}

// New creates an extractor tagging graphs with DefaultSource
func New() *GraphExtractor {
	return NewWithSource(DefaultSource)
}

// NewWithSource creates an extractor tagging graphs with source
func NewWithSource(source string) *GraphExtractor {
	return &GraphExtractor{
		source: source,
		newID:  func() string { return uuid.New().String() },
	}
}

// Extract normalizes a decoded JSON value. A missing or non-array "data"
// field yields an empty graph; the error return is always nil.
func (e *GraphExtractor) Extract(payload any) (*domain.ExtractedGraph, error) {
	nodes := []domain.Node{}
	edges := []domain.Edge{}

	for _, item := range dataItems(payload) {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		if props, ok := obj["Properties"]; ok {
			nodeType := stringField(obj, "ObjectIdentifier")
			nodes = append(nodes, domain.Node{
				ID:         e.newID(),
				Label:      nodeType,
				Type:       nodeType,
				Properties: props,
			})
		}

		rels, ok := obj["Rels"].([]any)
		if !ok {
			continue
		}
		for _, rel := range rels {
			relType := unknownType
			if relObj, ok := rel.(map[string]any); ok {
				relType = stringField(relObj, "RelType")
			}
			// endpoints are not linked to the node ids above
			edges = append(edges, domain.Edge{
				Source:     e.newID(),
				Target:     e.newID(),
				Type:       relType,
				Properties: rel,
			})
		}
	}

	return &domain.ExtractedGraph{
		Nodes: nodes,
		Edges: edges,
		Metadata: domain.GraphMetadata{
			ExtractedAt: time.Now().UTC(),
			Source:      e.source,
			TotalNodes:  len(nodes),
			TotalEdges:  len(edges),
		},
	}, nil
}

// ExtractBytes decodes raw JSON and extracts it
func (e *GraphExtractor) ExtractBytes(raw []byte) (*domain.ExtractedGraph, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON: %v", domain.ErrExtraction, err)
	}
	return e.Extract(payload)
}

// dataItems returns the top-level "data" array or nil
func dataItems(payload any) []any {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	items, _ := obj["data"].([]any)
	return items
}

// stringField returns obj[key] when it is a string, "unknown" otherwise
func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return unknownType
}
