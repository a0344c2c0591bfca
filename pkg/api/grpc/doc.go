// Package grpc exposes the standard gRPC health service for the queue worker.
package grpc
