// Package ports declares the interfaces dapipe's application layer depends on.
// Adapters under pkg/adapters implement them.
package ports
