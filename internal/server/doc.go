// Package server is the UI gateway: a chi router exposing health, metrics,
// and a WebSocket endpoint. Connected clients receive full session snapshots
// whenever the game state changes and send JSON commands that map onto the
// orchestrator's operations.
package server
