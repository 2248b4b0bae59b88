package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantField string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:      "bad logging level",
			mutate:    func(cfg *Config) { cfg.Telemetry.Logging.Level = "trace" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "bad logging format",
			mutate:    func(cfg *Config) { cfg.Telemetry.Logging.Format = "xml" },
			wantField: "telemetry.logging.format",
		},
		{
			name: "bad redact pattern",
			mutate: func(cfg *Config) {
				cfg.Telemetry.Logging.RedactPatterns = []RedactPattern{{Name: "x", Pattern: "("}}
			},
			wantField: "telemetry.logging.redact_patterns[0].pattern",
		},
		{
			name:      "listen address without port",
			mutate:    func(cfg *Config) { cfg.Server.ListenAddress = "localhost" },
			wantField: "server.listen_address",
		},
		{
			name:      "tls without certificate",
			mutate:    func(cfg *Config) { cfg.Server.TLS.Enabled = true; cfg.Server.TLS.KeyFile = "key.pem" },
			wantField: "server.tls.cert_file",
		},
		{
			name:      "tls 1.1",
			mutate:    func(cfg *Config) { cfg.Server.TLS.MinVersion = "1.1" },
			wantField: "server.tls.min_version",
		},
		{
			name:      "negative ingest rate",
			mutate:    func(cfg *Config) { cfg.Server.IngestRateLimit.RequestsPerSecond = -1 },
			wantField: "server.ingest_rate_limit.requests_per_second",
		},
		{
			name:      "otlp exporter without endpoint",
			mutate:    func(cfg *Config) { cfg.Telemetry.Tracing.Exporter = "otlp" },
			wantField: "telemetry.tracing.endpoint",
		},
		{
			name:      "unknown exporter",
			mutate:    func(cfg *Config) { cfg.Telemetry.Tracing.Exporter = "jaeger" },
			wantField: "telemetry.tracing.exporter",
		},
		{
			name:      "unknown sampler",
			mutate:    func(cfg *Config) { cfg.Telemetry.Tracing.Sampler = "sometimes" },
			wantField: "telemetry.tracing.sampler",
		},
		{
			name:      "sample ratio out of range",
			mutate:    func(cfg *Config) { cfg.Telemetry.Tracing.SampleRatio = 1.5 },
			wantField: "telemetry.tracing.sample_ratio",
		},
		{
			name:      "negative max traces",
			mutate:    func(cfg *Config) { cfg.Telemetry.Tracing.MaxTraces = -1 },
			wantField: "telemetry.tracing.max_traces",
		},
		{
			name:      "unsorted buckets",
			mutate:    func(cfg *Config) { cfg.Telemetry.Metrics.DefaultBuckets = []float64{1, 0.5} },
			wantField: "telemetry.metrics.default_buckets",
		},
		{
			name:      "quantile out of range",
			mutate:    func(cfg *Config) { cfg.Telemetry.Metrics.SummaryQuantiles = []float64{0.5, 1} },
			wantField: "telemetry.metrics.summary_quantiles",
		},
		{
			name:      "health path without slash",
			mutate:    func(cfg *Config) { cfg.Telemetry.Health.LivenessPath = "health" },
			wantField: "telemetry.health.liveness_path",
		},
		{
			name: "unknown budget type",
			mutate: func(cfg *Config) {
				cfg.Performance.Budgets = []BudgetConfig{{Type: "css", Limit: 10}}
			},
			wantField: "performance.budgets[0].type",
		},
		{
			name: "non-positive budget limit",
			mutate: func(cfg *Config) {
				cfg.Performance.Budgets = []BudgetConfig{{Type: "total", Limit: 0}}
			},
			wantField: "performance.budgets[0].limit",
		},
		{
			name:      "regression factor at most one",
			mutate:    func(cfg *Config) { cfg.Performance.RegressionFactor = 1 },
			wantField: "performance.regression_factor",
		},
		{
			name:      "bad cron schedule",
			mutate:    func(cfg *Config) { cfg.Performance.ReportSchedule = "every minute" },
			wantField: "performance.report_schedule",
		},
		{
			name:   "schedule off",
			mutate: func(cfg *Config) { cfg.Performance.ReportSchedule = "off" },
		},
		{
			name:      "negative threshold",
			mutate:    func(cfg *Config) { cfg.Performance.Thresholds.CLS = -0.1 },
			wantField: "performance.thresholds.cls",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() errors = %v, want field %q", verr.Errors, tt.wantField)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: a: bad" {
		t.Errorf("Error() = %q", got)
	}

	multi := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "bad"},
		{Field: "b", Message: "worse"},
	}}
	got := multi.Error()
	if !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - b: worse") {
		t.Errorf("Error() = %q", got)
	}
}
