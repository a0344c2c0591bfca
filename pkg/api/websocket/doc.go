// Package websocket streams bridge notifications to WebSocket clients.
package websocket
