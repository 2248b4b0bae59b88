package config

import "time"

// Config is the root configuration structure for Beacon.
// It contains all configuration sections for the observability core,
// the performance monitor, and the optional HTTP surface.
type Config struct {
	// Telemetry contains configuration for logging, metrics, tracing,
	// and health checks.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Performance contains budget, threshold, and trend configuration for
	// the performance monitor.
	Performance PerformanceConfig `yaml:"performance"`

	// Server contains configuration for the HTTP server started by
	// "beacon serve".
	Server ServerConfig `yaml:"server"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address to bind the HTTP server to.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown, including the final
	// flush of queued traces.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// TLS enables HTTPS with certificates reloaded from disk.
	TLS TLSConfig `yaml:"tls"`

	// IngestRateLimit throttles the POST /performance/* endpoints.
	IngestRateLimit RateLimitConfig `yaml:"ingest_rate_limit"`
}

// TLSConfig contains HTTPS configuration for the server.
type TLSConfig struct {
	// Enabled serves HTTPS instead of HTTP.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM-encoded certificate file.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded private key file.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum TLS version to accept.
	// Options: "1.2", "1.3"
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ReloadInterval is how often the certificate files are checked for
	// changes.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// RateLimitConfig is a token bucket limit.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate. 0 disables the limit.
	// Default: 0
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the bucket capacity. 0 selects RequestsPerSecond rounded up.
	Burst int `yaml:"burst"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// ServiceName is reported as the service.name resource attribute on
	// exported traces.
	// Default: "beacon"
	ServiceName string `yaml:"service_name"`

	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics registry configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains tracer and trace shipping configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables redaction of credentials and personal data in logs.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// Async routes log records through a bounded queue drained by a
	// background goroutine.
	// Default: false
	Async bool `yaml:"async"`

	// BufferSize is the size of the async log queue.
	// Default: 10000
	BufferSize int `yaml:"buffer_size"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics registry configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoints are exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the plain-text metrics export.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// PrometheusPath is the HTTP path for the client_golang scrape handler.
	// Default: "/metrics/prometheus"
	PrometheusPath string `yaml:"prometheus_path"`

	// Namespace is the metric name prefix used by built-in metrics.
	// Default: "beacon"
	Namespace string `yaml:"namespace"`

	// DefaultBuckets are used for histograms created without explicit buckets.
	// Default: [0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10]
	DefaultBuckets []float64 `yaml:"default_buckets"`

	// SummaryQuantiles are used for summaries created without explicit quantiles.
	// Default: [0.5, 0.9, 0.99]
	SummaryQuantiles []float64 `yaml:"summary_quantiles"`

	// SummaryMaxObservations bounds the observations retained by each
	// summary for quantile computation. 0 keeps every observation.
	// Default: 10000
	SummaryMaxObservations int `yaml:"summary_max_observations"`

	// IncludeRuntimeMetrics adds Go runtime and process collectors to the
	// Prometheus scrape handler.
	// Default: false
	IncludeRuntimeMetrics bool `yaml:"include_runtime_metrics"`
}

// TracingConfig contains tracer and trace shipping configuration.
type TracingConfig struct {
	// MaxTraces bounds the in-memory trace table. When exceeded, the
	// oldest trace by start time is evicted.
	// Default: 1000
	MaxTraces int `yaml:"max_traces"`

	// Sampler determines which finished traces are shipped.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to ship (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines where finished traces are handed off.
	// Options: "none", "otlp"
	// Default: "none"
	Exporter string `yaml:"exporter"`

	// Endpoint is the trace collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// QueueSize bounds the number of finished traces waiting to be shipped.
	// Default: 512
	QueueSize int `yaml:"queue_size"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the path for the version information endpoint.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout is the timeout for individual health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`

	// MaxOpenSpans is the number of simultaneously open spans above which
	// the tracer is reported unhealthy (a likely span leak). A negative
	// value disables the check.
	// Default: 10000
	MaxOpenSpans int `yaml:"max_open_spans"`

	// AlertWindow is how far back an error-severity performance alert
	// degrades readiness. 0 disables the check.
	// Default: 0
	AlertWindow time.Duration `yaml:"alert_window"`
}

// PerformanceConfig contains performance monitor configuration.
type PerformanceConfig struct {
	// Budgets are bundle size budgets evaluated against every bundle sample.
	Budgets []BudgetConfig `yaml:"budgets"`

	// Thresholds are the per-vital limits evaluated against every
	// web vitals sample.
	Thresholds ThresholdsConfig `yaml:"thresholds"`

	// HistorySize bounds the rolling measurement history.
	// Default: 1000
	HistorySize int `yaml:"history_size"`

	// MaxAlerts bounds the alert ring buffer.
	// Default: 100
	MaxAlerts int `yaml:"max_alerts"`

	// RegressionFactor is the multiple of the baseline build duration above
	// which a build is flagged as a regression.
	// Default: 1.5
	RegressionFactor float64 `yaml:"regression_factor"`

	// RegressionWindow is the number of recent successful builds averaged
	// into the regression baseline.
	// Default: 10
	RegressionWindow int `yaml:"regression_window"`

	// TrendWindow is the number of recent samples averaged into the
	// trend baseline.
	// Default: 20
	TrendWindow int `yaml:"trend_window"`

	// StableThreshold is the relative deviation below which a trend is
	// reported as stable.
	// Default: 0.05
	StableThreshold float64 `yaml:"stable_threshold"`

	// ReportSchedule is a cron expression for periodic performance reports.
	// "off" disables scheduled reports.
	// Default: "*/15 * * * *"
	ReportSchedule string `yaml:"report_schedule"`

	// Watch enables hot reload of budgets and thresholds when the
	// configuration file changes.
	// Default: false
	Watch bool `yaml:"watch"`
}

// BudgetConfig is a single bundle budget.
type BudgetConfig struct {
	// Type selects the measured dimension.
	// Options: "initial", "total", "async" (KiB), "chunks" (count)
	Type string `yaml:"type"`

	// Limit is the maximum allowed value.
	Limit float64 `yaml:"limit"`
}

// ThresholdsConfig contains per-vital thresholds. Durations are in
// milliseconds, CLS is unitless.
type ThresholdsConfig struct {
	LCP  float64 `yaml:"lcp"`
	FID  float64 `yaml:"fid"`
	CLS  float64 `yaml:"cls"`
	FCP  float64 `yaml:"fcp"`
	TTFB float64 `yaml:"ttfb"`
	INP  float64 `yaml:"inp"`
}
