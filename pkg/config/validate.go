package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validatePerformance(&cfg.Performance)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if !strings.Contains(cfg.ListenAddress, ":") {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: expected host:port", cfg.ListenAddress),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "shutdown timeout must be positive"})
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "cert_file is required when TLS is enabled"})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "key_file is required when TLS is enabled"})
		}
	}
	switch cfg.TLS.MinVersion {
	case "", "1.2", "1.3":
	default:
		errs = append(errs, FieldError{
			Field:   "server.tls.min_version",
			Message: fmt.Sprintf("invalid TLS version %q: must be '1.2' or '1.3'", cfg.TLS.MinVersion),
		})
	}
	if cfg.TLS.ReloadInterval < 0 {
		errs = append(errs, FieldError{Field: "server.tls.reload_interval", Message: "reload interval must be positive"})
	}

	if cfg.IngestRateLimit.RequestsPerSecond < 0 {
		errs = append(errs, FieldError{Field: "server.ingest_rate_limit.requests_per_second", Message: "rate must not be negative"})
	}
	if cfg.IngestRateLimit.Burst < 0 {
		errs = append(errs, FieldError{Field: "server.ingest_rate_limit.burst", Message: "burst must not be negative"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if cfg.ServiceName == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.service_name",
			Message: "service name is required",
		})
	}

	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateMetrics(&cfg.Metrics)...)
	errs = append(errs, validateTracing(&cfg.Tracing)...)
	errs = append(errs, validateHealth(&cfg.Health)...)

	return errs
}

func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if cfg.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Format),
		})
	}

	if cfg.Async && cfg.BufferSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.buffer_size",
			Message: "buffer size must be positive when async logging is enabled",
		})
	}

	for i, p := range cfg.RedactPatterns {
		field := fmt.Sprintf("telemetry.logging.redact_patterns[%d]", i)
		if p.Pattern == "" {
			errs = append(errs, FieldError{Field: field + ".pattern", Message: "pattern is required"})
			continue
		}
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   field + ".pattern",
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	return errs
}

func validateMetrics(cfg *MetricsConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled {
		if cfg.Path == "" || cfg.Path[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with / when metrics are enabled",
			})
		}
		if cfg.PrometheusPath == "" || cfg.PrometheusPath[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.prometheus_path",
				Message: "prometheus path must start with / when metrics are enabled",
			})
		}
		if cfg.Path != "" && cfg.Path == cfg.PrometheusPath {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.prometheus_path",
				Message: "prometheus path must differ from metrics path",
			})
		}
	}

	for i := 1; i < len(cfg.DefaultBuckets); i++ {
		if cfg.DefaultBuckets[i] <= cfg.DefaultBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.default_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	for _, q := range cfg.SummaryQuantiles {
		if q <= 0 || q >= 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.summary_quantiles",
				Message: fmt.Sprintf("quantile %v must be between 0 and 1 exclusive", q),
			})
		}
	}

	if cfg.SummaryMaxObservations < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.summary_max_observations",
			Message: "summary max observations must be non-negative",
		})
	}

	return errs
}

func validateTracing(cfg *TracingConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxTraces <= 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.max_traces",
			Message: "max traces must be positive",
		})
	}

	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Sampler),
		})
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	switch cfg.Exporter {
	case "none":
	case "otlp":
		if cfg.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "tracing endpoint is required when the otlp exporter is selected",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.exporter",
			Message: fmt.Sprintf("invalid exporter %q: must be 'none' or 'otlp'", cfg.Exporter),
		})
	}

	if cfg.QueueSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.queue_size",
			Message: "queue size must be positive",
		})
	}
	if cfg.OTLP.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.otlp.timeout",
			Message: "otlp timeout must be positive",
		})
	}

	return errs
}

func validateHealth(cfg *HealthConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	paths := []struct {
		field string
		value string
	}{
		{"telemetry.health.liveness_path", cfg.LivenessPath},
		{"telemetry.health.readiness_path", cfg.ReadinessPath},
		{"telemetry.health.version_path", cfg.VersionPath},
	}
	for _, p := range paths {
		if p.value == "" {
			errs = append(errs, FieldError{
				Field:   p.field,
				Message: "path is required when health checks are enabled",
			})
		} else if p.value[0] != '/' {
			errs = append(errs, FieldError{
				Field:   p.field,
				Message: "path must start with /",
			})
		}
	}

	if cfg.CheckTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "check timeout must be positive",
		})
	}
	if cfg.CheckTimeout > 60*time.Second {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "check timeout exceeds reasonable limit (60s)",
		})
	}
	if cfg.AlertWindow < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.alert_window",
			Message: "alert window must be non-negative",
		})
	}

	return errs
}

// ValidBudgetTypes lists the bundle dimensions a budget may target.
var ValidBudgetTypes = map[string]bool{
	"initial": true,
	"total":   true,
	"async":   true,
	"chunks":  true,
}

func validatePerformance(cfg *PerformanceConfig) []FieldError {
	var errs []FieldError

	for i, b := range cfg.Budgets {
		field := fmt.Sprintf("performance.budgets[%d]", i)
		if !ValidBudgetTypes[b.Type] {
			errs = append(errs, FieldError{
				Field:   field + ".type",
				Message: fmt.Sprintf("invalid budget type %q: must be 'initial', 'total', 'async', or 'chunks'", b.Type),
			})
		}
		if b.Limit <= 0 {
			errs = append(errs, FieldError{
				Field:   field + ".limit",
				Message: "budget limit must be positive",
			})
		}
	}

	thresholds := []struct {
		field string
		value float64
	}{
		{"performance.thresholds.lcp", cfg.Thresholds.LCP},
		{"performance.thresholds.fid", cfg.Thresholds.FID},
		{"performance.thresholds.cls", cfg.Thresholds.CLS},
		{"performance.thresholds.fcp", cfg.Thresholds.FCP},
		{"performance.thresholds.ttfb", cfg.Thresholds.TTFB},
		{"performance.thresholds.inp", cfg.Thresholds.INP},
	}
	for _, th := range thresholds {
		if th.value <= 0 {
			errs = append(errs, FieldError{Field: th.field, Message: "threshold must be positive"})
		}
	}

	if cfg.HistorySize <= 0 {
		errs = append(errs, FieldError{Field: "performance.history_size", Message: "history size must be positive"})
	}
	if cfg.MaxAlerts <= 0 {
		errs = append(errs, FieldError{Field: "performance.max_alerts", Message: "max alerts must be positive"})
	}
	if cfg.RegressionFactor <= 1 {
		errs = append(errs, FieldError{
			Field:   "performance.regression_factor",
			Message: "regression factor must be greater than 1",
		})
	}
	if cfg.RegressionWindow <= 0 {
		errs = append(errs, FieldError{Field: "performance.regression_window", Message: "regression window must be positive"})
	}
	if cfg.TrendWindow <= 0 {
		errs = append(errs, FieldError{Field: "performance.trend_window", Message: "trend window must be positive"})
	}
	if cfg.StableThreshold <= 0 || cfg.StableThreshold >= 1 {
		errs = append(errs, FieldError{
			Field:   "performance.stable_threshold",
			Message: "stable threshold must be between 0 and 1 exclusive",
		})
	}

	if cfg.ReportSchedule != "off" {
		if _, err := cron.ParseStandard(cfg.ReportSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "performance.report_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.ReportSchedule, err),
			})
		}
	}

	return errs
}
