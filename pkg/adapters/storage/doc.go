// Package storage provides run statistics storage implementations.
//
// Implementations:
//   - redis: Redis with JSON serialization and per-run TTL
//   - memory: In-memory for tests and single-node runs without Redis
package storage
