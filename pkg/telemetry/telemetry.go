package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"mercator-hq/beacon/pkg/config"
	"mercator-hq/beacon/pkg/performance"
	"mercator-hq/beacon/pkg/telemetry/health"
	"mercator-hq/beacon/pkg/telemetry/logging"
	"mercator-hq/beacon/pkg/telemetry/metrics"
	"mercator-hq/beacon/pkg/telemetry/tracing"
)

// Telemetry owns the observability components built from one
// configuration.
type Telemetry struct {
	cfg     *config.Config
	version string

	logger   *logging.Logger
	registry *metrics.Registry
	tracer   *tracing.Tracer
	shipper  *tracing.Shipper
	monitor  *performance.Monitor
	health   *health.Checker
}

type options struct {
	writer   io.Writer
	exporter sdktrace.SpanExporter
}

// Option configures New.
type Option func(*options)

// WithLogWriter sends log output to w instead of stdout.
func WithLogWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithSpanExporter ships finished traces to exporter, overriding the
// configured exporter.
func WithSpanExporter(exporter sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = exporter }
}

// New builds the logger, metrics registry, tracer, trace shipper,
// performance monitor and health checker described by cfg.
func New(ctx context.Context, cfg *config.Config, version string, opts ...Option) (*Telemetry, error) {
	if cfg == nil {
		return nil, errors.New("telemetry: nil configuration")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	tc := cfg.Telemetry

	logCfg := logging.FromConfig(tc.Logging)
	logCfg.Writer = o.writer
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	ns := tc.Metrics.Namespace
	registry := metrics.FromConfig(tc.Metrics, logger)

	tracerOpts := []tracing.Option{
		tracing.WithLogger(logger),
		tracing.WithMaxTraces(tc.Tracing.MaxTraces),
		tracing.WithServiceName(tc.ServiceName, version),
		tracing.WithMetrics(registry, ns),
	}
	if tc.Logging.RedactPII {
		tracerOpts = append(tracerOpts, tracing.WithRedactor(logging.NewRedactor(tc.Logging.RedactPatterns)))
	}
	tracer := tracing.NewTracer(tracerOpts...)

	shipper, err := newShipper(ctx, tc, version, o.exporter, logger, registry)
	if err != nil {
		_ = logger.Shutdown()
		return nil, err
	}
	if shipper != nil {
		shipper.Attach(tracer)
	}

	monitor, err := performance.FromConfig(cfg.Performance, registry, ns, logger)
	if err != nil {
		if shipper != nil {
			_ = shipper.Shutdown(ctx)
		}
		_ = logger.Shutdown()
		return nil, fmt.Errorf("failed to create performance monitor: %w", err)
	}

	checker := health.New(tc.Health.CheckTimeout,
		health.WithLogger(logger),
		health.WithMetrics(registry, ns),
	)
	checker.RegisterCheck(health.CheckOpenSpans, health.OpenSpanCheck(tracer, tc.Health.MaxOpenSpans))
	checker.RegisterCheck(health.CheckPerformanceAlerts, health.AlertCheck(monitor, tc.Health.AlertWindow))
	if shipper != nil {
		checker.RegisterCheck(health.CheckTraceExport, health.ExportCheck(shipper))
	}

	logger.Info("telemetry initialized",
		"service", tc.ServiceName,
		"version", version,
		"max_traces", tc.Tracing.MaxTraces,
		"exporter", tc.Tracing.Exporter,
		"budgets", len(cfg.Performance.Budgets),
	)

	return &Telemetry{
		cfg:      cfg,
		version:  version,
		logger:   logger,
		registry: registry,
		tracer:   tracer,
		shipper:  shipper,
		monitor:  monitor,
		health:   checker,
	}, nil
}

func newShipper(ctx context.Context, tc config.TelemetryConfig, version string, exporter sdktrace.SpanExporter, logger *logging.Logger, reg *metrics.Registry) (*tracing.Shipper, error) {
	res, err := tracing.NewResource(ctx, tc.ServiceName, version)
	if err != nil {
		return nil, err
	}
	opts := []tracing.ShipperOption{
		tracing.WithShipperLogger(logger),
		tracing.WithShipperMetrics(reg, tc.Metrics.Namespace),
	}

	if exporter == nil {
		s, err := tracing.NewShipperFromConfig(ctx, tc.Tracing, res, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace shipper: %w", err)
		}
		return s, nil
	}

	sampler, err := tracing.NewSampler(tc.Tracing.Sampler, tc.Tracing.SampleRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}
	opts = append(opts,
		tracing.WithSampler(sampler),
		tracing.WithQueueSize(tc.Tracing.QueueSize),
		tracing.WithResource(res),
		tracing.WithExportTimeout(tc.Tracing.OTLP.Timeout),
	)
	s, err := tracing.NewShipper(exporter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace shipper: %w", err)
	}
	return s, nil
}

// Config returns the configuration the components were built from.
func (t *Telemetry) Config() *config.Config { return t.cfg }

// Version returns the service version reported on exports.
func (t *Telemetry) Version() string { return t.version }

// Logger returns the structured logger.
func (t *Telemetry) Logger() *logging.Logger { return t.logger }

// Metrics returns the metrics registry.
func (t *Telemetry) Metrics() *metrics.Registry { return t.registry }

// Tracer returns the tracer.
func (t *Telemetry) Tracer() *tracing.Tracer { return t.tracer }

// Shipper returns the trace shipper, or nil when no exporter is configured.
func (t *Telemetry) Shipper() *tracing.Shipper { return t.shipper }

// Monitor returns the performance monitor.
func (t *Telemetry) Monitor() *performance.Monitor { return t.monitor }

// Health returns the health checker.
func (t *Telemetry) Health() *health.Checker { return t.health }

// ApplyPerformanceConfig hot-swaps the performance budgets, thresholds
// and evaluation parameters.
func (t *Telemetry) ApplyPerformanceConfig(cfg config.PerformanceConfig) error {
	return t.monitor.ApplyConfig(cfg)
}

// Shutdown ships queued traces, stops the exporter and drains the logger.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.shipper != nil {
		if err := t.shipper.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace shipper: %w", err))
		}
	}
	t.logger.Info("telemetry shut down", "traces", t.tracer.TraceCount())
	if err := t.logger.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("logger: %w", err))
	}
	return errors.Join(errs...)
}
