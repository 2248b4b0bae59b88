// Package metrics provides an in-process metrics registry with counters,
// gauges, histograms, and exact-quantile summaries.
//
// # Overview
//
// A Registry owns named primitives. Names are unique across kinds and the
// last registration wins:
//
//	reg := metrics.NewRegistry()
//	requests := reg.CreateCounter("http_requests_total", "Requests served.", metrics.Labels{"service": "web"})
//	requests.Inc()
//
//	latency := reg.CreateSummary("http_latency_seconds", "Request latency.", []float64{0.5, 0.99}, nil)
//	latency.Observe(0.042)
//
// Summary quantiles are exact: every Observe sorts the retained
// observations and recomputes each quantile by nearest rank. Retention can
// be bounded with WithMaxObservations, in which case quantiles describe the
// most recent window while sum and count remain cumulative.
//
// # Export
//
// ExportPrometheus renders the text exposition format with histograms
// reduced to their _sum and _count series. For a scrape endpoint with full
// bucket output, mount Handler, which bridges the registry into
// client_golang through an unchecked prometheus.Collector.
//
// GetAllMetrics returns a Snapshot that shares no memory with the registry.
package metrics
