// Package server exposes the observability core over HTTP for "beacon serve".
//
// # Routes
//
//	GET    /metrics                 Prometheus text export (no _bucket series)
//	GET    /metrics/json            registry snapshot
//	GET    /metrics/prometheus      client_golang scrape endpoint
//	GET    /traces                  stored traces, newest first
//	GET    /traces/{id}             one trace with its span tree
//	GET    /traces/{id}/otlp        one trace in OTLP JSON form
//	POST   /performance/vitals      record a web vitals sample
//	POST   /performance/bundle      record a bundle sample
//	POST   /performance/build       record a build sample
//	GET    /performance/alerts      retained alerts, optionally ?since=RFC3339
//	DELETE /performance/alerts      drop retained alerts
//	GET    /performance/trends      LCP, bundle size and build duration trends
//	GET    /performance/history     measurement history, optionally ?limit=N
//	GET    /performance/report      monitor summary
//	GET    /health, /ready, /version
//
// Metrics and health paths follow the telemetry configuration. /traces
// accepts name, status, min_duration, max_duration, since, until and
// limit filters; limit defaults to 100.
//
// # Middleware
//
// Requests pass through recovery, request ID, access logging and tracing,
// outermost first. Every request becomes a trace named "METHOD path",
// continued from incoming trace headers when present, and the response
// carries X-Trace-ID, X-Span-ID and X-Request-ID.
//
// # Ingest limits and TLS
//
// server.ingest_rate_limit puts a token bucket in front of the three
// POST /performance routes; rejected uploads get 429 with Retry-After and
// count toward <namespace>_http_requests_throttled_total. With
// server.tls.enabled the server speaks HTTPS and re-reads the certificate
// pair whenever its files change, checked every tls.reload_interval.
//
// # Usage
//
//	srv := server.NewServer(cfg.Server, tel, health.VersionInfo{Version: version})
//	if err := srv.Start(ctx); err != nil {
//		return err
//	}
//
// Start serves until ctx is cancelled and then shuts down within
// server.shutdown_timeout.
package server
