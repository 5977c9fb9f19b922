// Package metric provides Prometheus metrics for the node store.
//
// Metrics include:
//
//   - Operation counters by operation and result
//   - Operation latency histograms
//   - Payload size histograms (encoded JSON and stored bytes)
//   - Archive migration counters
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
