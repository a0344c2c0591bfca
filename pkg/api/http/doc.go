// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Synchronous pipeline orchestration
//   - Queueing pipeline records for the background worker
//   - Pipeline listing and stop requests
//   - Monitoring statistics and health checks
//   - Prometheus metrics
package http
