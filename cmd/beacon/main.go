// Beacon is an in-process observability core for web applications.
//
// It bundles a span tracer with OTLP export, a metrics registry with
// Prometheus text output, and a performance monitor for web vitals,
// bundle budgets and build regressions. The serve command exposes all of
// them over HTTP.
//
// Usage:
//
//	# Start the server with built-in defaults
//	beacon serve
//
//	# Start with a configuration file
//	beacon serve --config /etc/beacon/beacon.yaml
//
//	# Validate a configuration file and print the effective settings
//	beacon validate --config beacon.yaml --show --format yaml
//
//	# Show version information
//	beacon version
package main

func main() {
	Execute()
}
