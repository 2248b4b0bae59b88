package tracing

import (
	"context"

	"mercator-hq/beacon/pkg/telemetry/logging"
)

type traceContextKey struct{}

// ContextWithTrace returns a copy of ctx carrying tc as the active trace
// context. The trace and span ids are also attached for the logging
// package, so *Context log calls include them.
func ContextWithTrace(ctx context.Context, tc TraceContext) context.Context {
	ctx = context.WithValue(ctx, traceContextKey{}, tc)
	ctx = logging.WithTraceID(ctx, tc.TraceID)
	return logging.WithSpanID(ctx, tc.SpanID)
}

// FromContext returns the active trace context of ctx.
func FromContext(ctx context.Context) (TraceContext, bool) {
	if ctx == nil {
		return TraceContext{}, false
	}
	tc, ok := ctx.Value(traceContextKey{}).(TraceContext)
	if !ok || !tc.IsValid() {
		return TraceContext{}, false
	}
	return tc, true
}

// WithoutTrace returns a copy of ctx with no active trace context.
func WithoutTrace(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, traceContextKey{}, TraceContext{})
	ctx = logging.WithTraceID(ctx, "")
	return logging.WithSpanID(ctx, "")
}

// CreateChildContext derives a child of the active trace context and
// returns ctx carrying it. Without an active context it returns ctx
// unchanged and false.
func CreateChildContext(ctx context.Context) (context.Context, TraceContext, bool) {
	tc, ok := FromContext(ctx)
	if !ok {
		return ctx, TraceContext{}, false
	}
	child := tc.Child()
	return ContextWithTrace(ctx, child), child, true
}
