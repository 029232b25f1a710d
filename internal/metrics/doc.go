// Package metrics collects per-handler request and error-resolution metrics.
//
// It uses a channel-based event pipeline to asynchronously record:
//   - Request counts per handler
//   - Response times with percentile calculations (P50, P95, P99)
//   - HTTP status code distribution
//   - Which resolver (and error code) answered each failure
//   - Failures no resolver handled
//
// The collector runs in a dedicated goroutine. Emit never blocks the request
// path: events are dropped when the buffer is full.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Handler:    "api2.members",
//		Duration:   3 * time.Millisecond,
//		StatusCode: 400,
//	})
//
//	snapshot := collector.Snapshot()
//
// Pending events are drained when the context is cancelled.
package metrics
