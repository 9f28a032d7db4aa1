// Package metric provides Prometheus metrics for afri-asset.
//
//   - prometheus.go: metric registry, operation observer and /metrics handler
//   - collector.go: scrape-time collector for registry state
//
// All metrics use the "afriasset" namespace.
package metric
