package domain

import "errors"

var (
	// ErrExtraction is returned when a payload cannot be turned into a graph.
	// Extraction over already-decoded JSON never fails; only the byte and
	// file entry points produce it.
	ErrExtraction = errors.New("extraction failed")

	// ErrPipelineNotFound is returned for lookups of an unknown pipeline id.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrIO wraps directory and file failures in the queue path.
	ErrIO = errors.New("queue i/o failed")

	// ErrDeserialization marks a queued file that is not a valid record.
	ErrDeserialization = errors.New("invalid pipeline record")

	// ErrQueueConflict is returned when a different record already holds
	// the sanitized file name of a record being queued.
	ErrQueueConflict = errors.New("queue file name already in use")

	// ErrBridge wraps notification send failures.
	ErrBridge = errors.New("bridge send failed")
)
