// Package orchestrator implements the pipeline registry and the coordinator
// that runs pipelines on behalf of request handlers and the queue worker.
//
// The Registry owns every Pipeline keyed by id:
//   - Creating a pipeline extracts its payload and records the run
//   - Re-creating an id overwrites the previous entry
//   - Stopping is the only other state transition
//
// The Manager runs a pipeline against the Registry, then updates the Monitor,
// persists statistics and notifies the bridge. The Registry lock is always
// released before the Monitor lock is taken.
package orchestrator
