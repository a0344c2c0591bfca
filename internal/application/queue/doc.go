// Package queue implements the durable, file-backed pipeline queue.
//
// Each submission is one JSON file in the work directory named after its
// sanitized id. The queue worker moves handled files into the processed/ or
// failed/ subdirectory; nothing is ever re-queued automatically.
package queue
