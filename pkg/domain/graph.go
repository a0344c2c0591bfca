package domain

import "time"

// Node is a normalized graph vertex.
type Node struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Type       string `json:"type"`
	Properties any    `json:"properties"`
}

// Edge is a normalized graph relationship. Source and Target are freshly
// generated identifiers and do not reference Node ids.
type Edge struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	Type       string `json:"type"`
	Properties any    `json:"properties"`
}

// GraphMetadata describes an extraction run
type GraphMetadata struct {
	ExtractedAt time.Time `json:"extracted_at"`
	Source      string    `json:"source"`
	TotalNodes  int       `json:"total_nodes"`
	TotalEdges  int       `json:"total_edges"`
}

// ExtractedGraph is the result of normalizing a payload
type ExtractedGraph struct {
	Nodes    []Node        `json:"nodes"`
	Edges    []Edge        `json:"edges"`
	Metadata GraphMetadata `json:"metadata"`
}
