// Package workers implements the background queue worker.
//
// The queue worker runs a single goroutine that:
//   - Scans the work directory for queued pipeline records
//   - Runs each record through the pipeline manager
//   - Moves handled files into processed/ or failed/
//   - Sleeps for the poll interval and scans again
//
// The health monitor tracks worker state and queue depth.
package workers
