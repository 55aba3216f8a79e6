// Package metrics provides Prometheus instrumentation for the engine.
//
// Key metrics:
//   - Event generation rates by type
//   - Enrichment failures and latencies
//   - Feed reconnects and dropped ticks
//   - Connected UI WebSocket clients
//   - Quiz outcomes
package metrics
