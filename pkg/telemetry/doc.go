// Package telemetry wires the observability core together from a single
// configuration.
//
// # Components
//
//   - logging: structured slog logging with redaction, sinks and an async buffer
//   - metrics: counters, gauges, histograms and exact-quantile summaries
//   - tracing: in-memory span trees, header propagation and OTLP hand-off
//   - health: liveness and readiness probes over the core
//
// The performance monitor from package performance shares the same
// registry and logger.
//
// # Usage
//
//	cfg, err := config.LoadConfig("beacon.yaml")
//	if err != nil {
//		return err
//	}
//	tel, err := telemetry.New(ctx, cfg, version)
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(ctx)
//
//	handler := tracing.Middleware(tel.Tracer())(mux)
//	tel.Monitor().RecordWebVitals(performance.WebVitals{LCP: 1800})
//
// Shutdown ships every queued trace before it stops the exporter, so it
// should run under a deadline such as server.shutdown_timeout.
package telemetry
