// Package config provides configuration management for Beacon.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. Every field has a default,
// so an empty file is a valid configuration.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("beacon.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("beacon.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention BEACON_SECTION_FIELD.
// For example:
//
//   - BEACON_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - BEACON_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//   - BEACON_TELEMETRY_TRACING_EXPORTER overrides telemetry.tracing.exporter
//   - BEACON_PERFORMANCE_REPORT_SCHEDULE overrides performance.report_schedule
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// A Watcher observes the configuration file and calls ReloadConfig after
// each burst of writes. Invalid files are rejected and the running
// configuration is kept:
//
//	w, _ := config.NewWatcher("beacon.yaml", 0, logger)
//	go w.Watch(ctx, func(cfg *config.Config) {
//	    monitor.SetBudgets(...)
//	})
//
// # Example Configuration
//
//	server:
//	  listen_address: "127.0.0.1:9464"
//
//	telemetry:
//	  service_name: "web-frontend"
//	  logging:
//	    level: "info"
//	    format: "json"
//	  tracing:
//	    max_traces: 1000
//	    exporter: "otlp"
//	    endpoint: "localhost:4317"
//	    otlp:
//	      insecure: true
//
//	performance:
//	  budgets:
//	    - type: initial
//	      limit: 200
//	  thresholds:
//	    lcp: 2500
//	  report_schedule: "*/15 * * * *"
//
// # Thread Safety
//
// The singleton uses a read-write lock so reads proceed concurrently while
// a reload swaps the instance.
package config
