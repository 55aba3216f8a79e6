// Package stream implements the event stream controller: a bounded,
// insertion-ordered window of game events fed by three producers, namely a
// timer-driven generator, the live market-data feed, and asynchronous
// enrichment completions.
//
// All state (event window, price maps, active global modifier) is owned by
// the controller and mutated under one mutex; enrichment and forecast
// resolution run as background tasks that deliver results back through
// channels consumed by the controller's run loop. Stopping the controller
// cancels every in-flight task, so no patch lands after teardown.
package stream
