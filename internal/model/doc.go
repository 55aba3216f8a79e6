// Package model defines the shared data types that flow through the engine.
//
// Conventions:
//   - Event IDs: process-unique monotonic strings ("event-42"), assigned by
//     the stream controller.
//   - Lanes: 0-2 for events rendered on the three visual tracks, -1 for
//     events with no spatial placement.
//   - Money-like values (P&L, rewards) are float64; they are game points,
//     not currency.
package model
