package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress     = "127.0.0.1:9464"
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultTLSMinVersion     = "1.3"
	DefaultTLSReloadInterval = 5 * time.Minute

	// Telemetry defaults
	DefaultServiceName = "beacon"

	// Logging defaults
	DefaultLoggingLevel      = "info"
	DefaultLoggingFormat     = "json"
	DefaultLoggingRedactPII  = true
	DefaultLoggingBufferSize = 10000

	// Metrics defaults
	DefaultMetricsEnabled                = true
	DefaultMetricsPath                   = "/metrics"
	DefaultMetricsPrometheusPath         = "/metrics/prometheus"
	DefaultMetricsNamespace              = "beacon"
	DefaultMetricsSummaryMaxObservations = 10000

	// Tracing defaults
	DefaultTracingMaxTraces   = 1000
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingExporter    = "none"
	DefaultTracingQueueSize   = 512
	DefaultTracingOTLPTimeout = 10 * time.Second

	// Health defaults
	DefaultHealthEnabled       = true
	DefaultHealthLivenessPath  = "/health"
	DefaultHealthReadinessPath = "/ready"
	DefaultHealthVersionPath   = "/version"
	DefaultHealthCheckTimeout  = 5 * time.Second
	DefaultHealthMaxOpenSpans  = 10000

	// Performance defaults
	DefaultPerformanceHistorySize      = 1000
	DefaultPerformanceMaxAlerts        = 100
	DefaultPerformanceRegressionFactor = 1.5
	DefaultPerformanceRegressionWindow = 10
	DefaultPerformanceTrendWindow      = 20
	DefaultPerformanceStableThreshold  = 0.05
	DefaultPerformanceReportSchedule   = "*/15 * * * *"

	// Web vitals thresholds (ms, CLS unitless)
	DefaultThresholdLCP  = 2500.0
	DefaultThresholdFID  = 100.0
	DefaultThresholdCLS  = 0.1
	DefaultThresholdFCP  = 1800.0
	DefaultThresholdTTFB = 800.0
	DefaultThresholdINP  = 200.0
)

// DefaultHistogramBuckets are the histogram upper bounds used when a
// histogram is created without explicit buckets.
var DefaultHistogramBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// DefaultSummaryQuantiles are the quantiles tracked when a summary is
// created without explicit quantiles.
var DefaultSummaryQuantiles = []float64{0.5, 0.9, 0.99}

// Default returns a configuration populated with every default value.
// Booleans whose default is true can only be expressed this way, so
// LoadConfig decodes YAML on top of this value.
func Default() *Config {
	cfg := &Config{}
	cfg.Telemetry.Logging.RedactPII = DefaultLoggingRedactPII
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Server.TLS.ReloadInterval == 0 {
		cfg.Server.TLS.ReloadInterval = DefaultTLSReloadInterval
	}

	applyTelemetryDefaults(&cfg.Telemetry)
	applyPerformanceDefaults(&cfg.Performance)
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Logging.BufferSize == 0 {
		cfg.Logging.BufferSize = DefaultLoggingBufferSize
	}

	// Metrics defaults
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.PrometheusPath == "" {
		cfg.Metrics.PrometheusPath = DefaultMetricsPrometheusPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Metrics.DefaultBuckets) == 0 {
		cfg.Metrics.DefaultBuckets = append([]float64(nil), DefaultHistogramBuckets...)
	}
	if len(cfg.Metrics.SummaryQuantiles) == 0 {
		cfg.Metrics.SummaryQuantiles = append([]float64(nil), DefaultSummaryQuantiles...)
	}
	if cfg.Metrics.SummaryMaxObservations == 0 {
		cfg.Metrics.SummaryMaxObservations = DefaultMetricsSummaryMaxObservations
	}

	// Tracing defaults
	if cfg.Tracing.MaxTraces == 0 {
		cfg.Tracing.MaxTraces = DefaultTracingMaxTraces
	}
	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Tracing.QueueSize == 0 {
		cfg.Tracing.QueueSize = DefaultTracingQueueSize
	}
	if cfg.Tracing.OTLP.Timeout == 0 {
		cfg.Tracing.OTLP.Timeout = DefaultTracingOTLPTimeout
	}

	// Health defaults
	if cfg.Health.LivenessPath == "" {
		cfg.Health.LivenessPath = DefaultHealthLivenessPath
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = DefaultHealthReadinessPath
	}
	if cfg.Health.VersionPath == "" {
		cfg.Health.VersionPath = DefaultHealthVersionPath
	}
	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
	if cfg.Health.MaxOpenSpans == 0 {
		cfg.Health.MaxOpenSpans = DefaultHealthMaxOpenSpans
	}
}

func applyPerformanceDefaults(cfg *PerformanceConfig) {
	if cfg.HistorySize == 0 {
		cfg.HistorySize = DefaultPerformanceHistorySize
	}
	if cfg.MaxAlerts == 0 {
		cfg.MaxAlerts = DefaultPerformanceMaxAlerts
	}
	if cfg.RegressionFactor == 0 {
		cfg.RegressionFactor = DefaultPerformanceRegressionFactor
	}
	if cfg.RegressionWindow == 0 {
		cfg.RegressionWindow = DefaultPerformanceRegressionWindow
	}
	if cfg.TrendWindow == 0 {
		cfg.TrendWindow = DefaultPerformanceTrendWindow
	}
	if cfg.StableThreshold == 0 {
		cfg.StableThreshold = DefaultPerformanceStableThreshold
	}
	if cfg.ReportSchedule == "" {
		cfg.ReportSchedule = DefaultPerformanceReportSchedule
	}

	// Thresholds
	if cfg.Thresholds.LCP == 0 {
		cfg.Thresholds.LCP = DefaultThresholdLCP
	}
	if cfg.Thresholds.FID == 0 {
		cfg.Thresholds.FID = DefaultThresholdFID
	}
	if cfg.Thresholds.CLS == 0 {
		cfg.Thresholds.CLS = DefaultThresholdCLS
	}
	if cfg.Thresholds.FCP == 0 {
		cfg.Thresholds.FCP = DefaultThresholdFCP
	}
	if cfg.Thresholds.TTFB == 0 {
		cfg.Thresholds.TTFB = DefaultThresholdTTFB
	}
	if cfg.Thresholds.INP == 0 {
		cfg.Thresholds.INP = DefaultThresholdINP
	}
}
