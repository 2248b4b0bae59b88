// Package tracing provides an in-process tracer that records traces as
// trees of spans, propagates trace context across call and process
// boundaries, and ships finished traces to OpenTelemetry exporters.
//
// # Overview
//
// A Tracer keeps a bounded table of traces. Each trace stores its spans in
// an arena addressed by span id, with children held as index lists. Open
// spans are also indexed tracer-wide so that ending a span or adding an
// event is a map lookup:
//
//	tracer := tracing.NewTracer(tracing.WithLogger(logger), tracing.WithMaxTraces(1000))
//
//	tc := tracer.StartTrace("request-A", nil)
//	handler, _ := tracer.StartSpan(tc.TraceID, "handler", "", nil)
//	query, _ := tracer.StartSpan(tc.TraceID, "db-query", handler, nil)
//	tracer.AddEvent(query, "query-sent", nil)
//	tracer.EndSpan(query, tracing.StatusSuccess, nil)
//	tracer.EndSpan(handler, tracing.StatusSuccess, nil)
//	tr := tracer.EndTrace(tc.TraceID, tracing.StatusSuccess)
//
// Unknown or already closed ids never panic: EndSpan and AddEvent log a
// warning and return false, StartSpan returns ErrTraceNotFound and
// EndTrace returns nil. Ending a trace with open spans logs a warning and
// still finalizes it.
//
// When the table grows past its limit the trace with the oldest start
// time is evicted together with any spans it still had open.
//
// # Context Propagation
//
// The active trace context travels in a context.Context, so concurrent
// requests never share it:
//
//	ctx, tc := tracer.TraceRequest(ctx, "checkout", nil)
//	defer tracer.EndRequest(ctx, tracing.StatusSuccess)
//
//	err := tracer.TraceFunction(ctx, "load-cart", func(ctx context.Context) error {
//		return cart.Load(ctx)
//	}, nil)
//
// TraceFunction, TraceValue and TraceAsync open a child span around the
// wrapped work and close it with StatusError and an error.message
// attribute when the work fails. Errors are returned and panics re-raised
// unchanged. Without an active context the work runs untraced.
//
// Across processes the context is carried in four headers: trace-id,
// span-id, parent-span-id and a JSON baggage map. ExtractFromHeaders also
// accepts x-trace-id and a W3C traceparent header. Middleware continues
// incoming traces for HTTP servers.
//
// # Export
//
// ExportTrace renders a trace in OTLP/JSON shape with spans flattened
// depth-first. A Shipper attached to the tracer converts each finished
// trace to OpenTelemetry read-only spans and hands it to a SpanExporter
// (OTLP over gRPC, or any exporter in tests), after a sampling decision:
//
//	telemetry:
//	  tracing:
//	    exporter: otlp
//	    endpoint: localhost:4317
//	    sampler: ratio
//	    sample_ratio: 0.1
//
// Export failures are logged and counted; they never reach the code that
// ended the trace.
package tracing
