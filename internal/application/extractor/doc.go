// Package extractor normalizes arbitrary JSON payloads into node/edge graphs.
//
// The accepted dialect is an object with a top-level "data" array whose
// elements may carry:
//   - Properties: emitted as one node, typed by ObjectIdentifier
//   - Rels: an array, each entry emitted as one edge typed by RelType
//
// Anything else is ignored, so extraction over decoded JSON is total.
package extractor
