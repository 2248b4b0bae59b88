package tracing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/beacon/pkg/config"
	"mercator-hq/beacon/pkg/telemetry/logging"
	"mercator-hq/beacon/pkg/telemetry/metrics"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials/insecure"
)

// Exporter names accepted by NewExporter.
const (
	ExporterNone = "none"
	ExporterOTLP = "otlp"
)

// DefaultQueueSize bounds the shipper queue when no size is configured.
const DefaultQueueSize = 512

// ErrShipperClosed is returned by Shutdown when called twice.
var ErrShipperClosed = errors.New("shipper already shut down")

// ShipperStats counts what happened to the traces handed to a shipper.
type ShipperStats struct {
	Shipped   int64 `json:"shipped"`
	Unsampled int64 `json:"unsampled"`
	Dropped   int64 `json:"dropped"`
	Failed    int64 `json:"failed"`
}

// Shipper hands finished traces to an OpenTelemetry span exporter. Traces
// are queued and exported by one background goroutine; a full queue
// drops the trace. Export failures are logged and counted, never
// returned to the code that ended the trace.
type Shipper struct {
	exporter sdktrace.SpanExporter
	sampler  sdktrace.Sampler
	resource *resource.Resource
	scope    instrumentation.Scope
	logger   logging.LevelLogger
	timeout  time.Duration

	queue   chan *Trace
	pending atomic.Int64
	mu      sync.RWMutex
	closed  bool
	done    chan struct{}

	shipped   atomic.Int64
	unsampled atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
	metrics   *shipperMetrics
}

// ShipperOption configures a Shipper.
type ShipperOption func(*Shipper)

// WithShipperLogger sets the logger for export failures.
func WithShipperLogger(l logging.LevelLogger) ShipperOption {
	return func(s *Shipper) { s.logger = logging.OrNop(l) }
}

// WithSampler sets the sampler that decides which traces are exported.
func WithSampler(sampler sdktrace.Sampler) ShipperOption {
	return func(s *Shipper) {
		if sampler != nil {
			s.sampler = sampler
		}
	}
}

// WithQueueSize bounds the number of traces waiting to be exported.
func WithQueueSize(n int) ShipperOption {
	return func(s *Shipper) {
		if n > 0 {
			s.queue = make(chan *Trace, n)
		}
	}
}

// WithResource sets the resource reported on exported spans.
func WithResource(res *resource.Resource) ShipperOption {
	return func(s *Shipper) {
		if res != nil {
			s.resource = res
		}
	}
}

// WithExportTimeout bounds each export call. 0 disables the bound.
func WithExportTimeout(d time.Duration) ShipperOption {
	return func(s *Shipper) { s.timeout = d }
}

// WithShipperMetrics records shipper activity in reg.
func WithShipperMetrics(reg *metrics.Registry, namespace string) ShipperOption {
	return func(s *Shipper) {
		if reg != nil {
			s.metrics = newShipperMetrics(reg, namespace)
		}
	}
}

// NewShipper starts a shipper exporting to exporter.
func NewShipper(exporter sdktrace.SpanExporter, opts ...ShipperOption) (*Shipper, error) {
	if exporter == nil {
		return nil, errors.New("span exporter is nil")
	}
	s := &Shipper{
		exporter: exporter,
		sampler:  sdktrace.ParentBased(sdktrace.AlwaysSample()),
		resource: resource.Empty(),
		scope:    instrumentation.Scope{Name: InstrumentationName},
		logger:   logging.Nop(),
		queue:    make(chan *Trace, DefaultQueueSize),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s, nil
}

// NewShipperFromConfig builds the exporter and sampler named in cfg and
// starts a shipper. With the "none" exporter it returns nil and no error.
func NewShipperFromConfig(ctx context.Context, cfg config.TracingConfig, res *resource.Resource, opts ...ShipperOption) (*Shipper, error) {
	exporter, err := NewExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}
	if exporter == nil {
		return nil, nil
	}

	sampler, err := NewSampler(cfg.Sampler, cfg.SampleRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	base := []ShipperOption{
		WithSampler(sampler),
		WithQueueSize(cfg.QueueSize),
		WithResource(res),
		WithExportTimeout(cfg.OTLP.Timeout),
	}
	return NewShipper(exporter, append(base, opts...)...)
}

// NewExporter creates the span exporter named by cfg.Exporter. The
// "none" exporter returns a nil exporter and no error.
func NewExporter(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "", ExporterNone:
		return nil, nil
	case ExporterOTLP:
		return newOTLPExporter(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}
}

func newOTLPExporter(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}

	if cfg.OTLP.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if cfg.OTLP.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.OTLP.Timeout))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exporter, nil
}

// NewResource describes the service that produced the traces.
func NewResource(ctx context.Context, serviceName, serviceVersion string) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// Attach ships every trace that t ends from now on.
func (s *Shipper) Attach(t *Tracer) {
	t.OnTraceEnd(func(tr *Trace) { s.Enqueue(tr) })
}

// Enqueue queues a finished trace. It reports false when the queue is
// full or the shipper is shut down.
func (s *Shipper) Enqueue(tr *Trace) bool {
	if tr == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.drop(tr, "shipper shut down")
		return false
	}
	s.pending.Add(1)
	select {
	case s.queue <- tr:
		return true
	default:
		s.pending.Add(-1)
		s.drop(tr, "queue full")
		return false
	}
}

func (s *Shipper) drop(tr *Trace, reason string) {
	s.dropped.Add(1)
	s.metrics.incDropped()
	s.logger.Warn("trace dropped", "trace_id", tr.ID, "reason", reason)
}

func (s *Shipper) run() {
	defer close(s.done)
	for tr := range s.queue {
		s.ship(tr)
		s.pending.Add(-1)
	}
}

func (s *Shipper) ship(tr *Trace) {
	tid := otelTraceID(tr.ID)
	parent := context.Background()
	if psc, ok := remoteParentContext(tr, tid); ok {
		parent = trace.ContextWithRemoteSpanContext(parent, psc)
	}
	decision := s.sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: parent,
		TraceID:       tid,
		Name:          tr.Name,
		Kind:          trace.SpanKindServer,
	})
	if decision.Decision != sdktrace.RecordAndSample {
		s.unsampled.Add(1)
		s.metrics.incUnsampled()
		return
	}

	spans := SpanStubs(tr, s.resource, s.scope).Snapshots()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.exporter.ExportSpans(ctx, spans); err != nil {
		s.failed.Add(1)
		s.metrics.incFailed()
		s.logger.Error("trace export failed", "trace_id", tr.ID, "spans", len(spans), "error", err)
		return
	}
	s.shipped.Add(1)
	s.metrics.incShipped()
}

// remoteParentContext returns the caller's span context when the trace
// was continued with a propagated sampling decision.
func remoteParentContext(tr *Trace, tid trace.TraceID) (trace.SpanContext, bool) {
	if tr.RemoteParentSpanID == "" || tr.RemoteSampled == nil {
		return trace.SpanContext{}, false
	}
	var flags trace.TraceFlags
	if *tr.RemoteSampled {
		flags = trace.FlagsSampled
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     otelSpanID(tr.RemoteParentSpanID),
		TraceFlags: flags,
		Remote:     true,
	}), true
}

// Stats returns the shipper counters.
func (s *Shipper) Stats() ShipperStats {
	return ShipperStats{
		Shipped:   s.shipped.Load(),
		Unsampled: s.unsampled.Load(),
		Dropped:   s.dropped.Load(),
		Failed:    s.failed.Load(),
	}
}

// ExportFailures returns the number of failed exports.
func (s *Shipper) ExportFailures() int64 {
	return s.failed.Load()
}

// Flush waits until every queued trace has been handed to the exporter.
func (s *Shipper) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for s.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("shipper flush interrupted: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

// Shutdown stops accepting traces, exports what is queued and shuts the
// exporter down. Queued traces still waiting when ctx is done are lost.
func (s *Shipper) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrShipperClosed
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-ctx.Done():
		return fmt.Errorf("shipper drain interrupted: %w", ctx.Err())
	}
	return s.exporter.Shutdown(ctx)
}

// SpanStubs converts a trace snapshot to OpenTelemetry span stubs, one
// per span. Spans still open when the trace ended are closed at the
// trace end time and marked incomplete. A trace without spans becomes a
// single span named after the trace.
func SpanStubs(tr *Trace, res *resource.Resource, scope instrumentation.Scope) tracetest.SpanStubs {
	tid := otelTraceID(tr.ID)
	traceEnd := tr.StartTime
	if tr.EndTime != nil {
		traceEnd = *tr.EndTime
	}

	var remoteParent trace.SpanContext
	if tr.RemoteParentSpanID != "" {
		remoteParent = trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    tid,
			SpanID:     otelSpanID(tr.RemoteParentSpanID),
			TraceFlags: trace.FlagsSampled,
			Remote:     true,
		})
	}
	spanContext := func(id string) trace.SpanContext {
		return trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    tid,
			SpanID:     otelSpanID(id),
			TraceFlags: trace.FlagsSampled,
		})
	}

	if len(tr.Spans) == 0 {
		return tracetest.SpanStubs{{
			Name:                 tr.Name,
			SpanContext:          spanContext("trace:" + tr.ID),
			Parent:               remoteParent,
			SpanKind:             trace.SpanKindServer,
			StartTime:            tr.StartTime,
			EndTime:              traceEnd,
			Attributes:           keyValues(tr.Attributes),
			Status:               sdkStatus(tr.Status, tr.Attributes),
			Resource:             res,
			InstrumentationScope: scope,
		}}
	}

	var stubs tracetest.SpanStubs
	tr.Walk(func(s *Span) {
		parent := remoteParent
		if s.ParentSpanID != "" {
			parent = spanContext(s.ParentSpanID)
		}

		attrs := s.Attributes
		end := traceEnd
		if s.EndTime != nil {
			end = *s.EndTime
		} else {
			attrs = attrs.Clone()
			if attrs == nil {
				attrs = Attributes{}
			}
			attrs[AttrIncomplete] = true
		}

		events := make([]sdktrace.Event, 0, len(s.Events))
		for _, ev := range s.Events {
			events = append(events, sdktrace.Event{
				Name:       ev.Name,
				Attributes: keyValues(ev.Attributes),
				Time:       ev.Timestamp,
			})
		}

		stubs = append(stubs, tracetest.SpanStub{
			Name:                 s.Name,
			SpanContext:          spanContext(s.ID),
			Parent:               parent,
			SpanKind:             trace.SpanKindInternal,
			StartTime:            s.StartTime,
			EndTime:              end,
			Attributes:           keyValues(attrs),
			Events:               events,
			Status:               sdkStatus(s.Status, attrs),
			ChildSpanCount:       len(s.Children),
			Resource:             res,
			InstrumentationScope: scope,
		})
	})
	return stubs
}

func sdkStatus(status Status, attrs Attributes) sdktrace.Status {
	switch status {
	case StatusSuccess:
		return sdktrace.Status{Code: codes.Ok}
	case StatusError:
		msg, _ := attrs[AttrErrorMessage].(string)
		return sdktrace.Status{Code: codes.Error, Description: msg}
	default:
		return sdktrace.Status{Code: codes.Unset}
	}
}

// shipperMetrics mirrors shipper counters into a registry. A nil
// *shipperMetrics records nothing.
type shipperMetrics struct {
	shipped   *metrics.Counter
	unsampled *metrics.Counter
	dropped   *metrics.Counter
	failed    *metrics.Counter
}

func newShipperMetrics(reg *metrics.Registry, namespace string) *shipperMetrics {
	prefix := ""
	if namespace != "" {
		prefix = namespace + "_"
	}
	return &shipperMetrics{
		shipped:   reg.Counter(prefix+"traces_shipped_total", "Traces handed to the span exporter.", nil),
		unsampled: reg.Counter(prefix+"traces_unsampled_total", "Traces skipped by the sampler.", nil),
		dropped:   reg.Counter(prefix+"traces_dropped_total", "Traces dropped because the ship queue was full or closed.", nil),
		failed:    reg.Counter(prefix+"trace_export_failures_total", "Trace exports that failed.", nil),
	}
}

func (m *shipperMetrics) incShipped() {
	if m != nil {
		m.shipped.Inc()
	}
}

func (m *shipperMetrics) incUnsampled() {
	if m != nil {
		m.unsampled.Inc()
	}
}

func (m *shipperMetrics) incDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *shipperMetrics) incFailed() {
	if m != nil {
		m.failed.Inc()
	}
}
