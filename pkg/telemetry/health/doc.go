// Package health provides liveness, readiness and version endpoints for
// processes embedding the observability core.
//
// # Endpoints
//
//   - /health: liveness, always 200 while the process serves requests
//   - /ready: readiness, runs every registered check and answers 503 when
//     any of them fails
//   - /version: build information
//
// Paths come from config.HealthConfig and are registered with Mount.
//
// # Checks
//
// A check is a CheckFunc; each runs concurrently under the checker's
// per-check timeout. The package ships checks over the core itself:
//
//	checker := health.New(5*time.Second, health.WithLogger(logger))
//	checker.RegisterCheck(health.CheckOpenSpans, health.OpenSpanCheck(tracer, 10000))
//	checker.RegisterCheck(health.CheckPerformanceAlerts, health.AlertCheck(monitor, 5*time.Minute))
//	checker.RegisterCheck(health.CheckTraceExport, health.ExportCheck(shipper))
//
// OpenSpanCheck flags span leaks, AlertCheck degrades readiness while
// recent error-severity performance alerts are retained, and ExportCheck
// reports trace exports that failed since it last ran.
package health
