// Package bridge provides transports for pipeline notifications.
//
// Implementations:
//   - http: POST to a flow engine HTTP endpoint
//   - mqtt: publish to an MQTT broker
//   - redis: append to a Redis stream
//   - memory: in-process fan-out hub feeding WebSocket clients and tests
//
// Multi sends each message through every configured transport.
package bridge
