// Package metric provides Prometheus metrics for respkv.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Registry, counters and histograms, HTTP handler
//   - collector.go: KeyspaceCollector, which reads database sizes at scrape time
//
// Metrics are exposed at /metrics in Prometheus format by the
// httpserver package when metrics are enabled.
package metric
