package tracing

import (
	"context"
	"fmt"
)

// TraceRequest starts a trace and returns ctx carrying its context.
func (t *Tracer) TraceRequest(ctx context.Context, name string, attrs map[string]any) (context.Context, TraceContext) {
	tc := t.StartTrace(name, attrs)
	return ContextWithTrace(ctx, tc), tc
}

// EndRequest ends the trace active in ctx and returns its snapshot. The
// caller should stop using ctx for tracing afterwards; WithoutTrace
// clears it. Without an active trace EndRequest returns nil.
func (t *Tracer) EndRequest(ctx context.Context, status Status) *Trace {
	tc, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return t.EndTrace(tc.TraceID, status)
}

// TraceFunction runs fn inside a child span of the trace active in ctx.
// The span ends with StatusError and an error.message attribute when fn
// fails or panics; the error is returned and the panic re-raised
// unchanged. Without an active trace fn runs untraced.
func (t *Tracer) TraceFunction(ctx context.Context, name string, fn func(context.Context) error, attrs map[string]any) error {
	_, err := TraceValue(ctx, t, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, attrs)
	return err
}

// TraceValue is TraceFunction for work that returns a value.
func TraceValue[T any](ctx context.Context, t *Tracer, name string, fn func(context.Context) (T, error), attrs map[string]any) (T, error) {
	spanCtx, spanID, ok := t.startChild(ctx, name, attrs)
	if !ok {
		return fn(ctx)
	}

	defer func() {
		if p := recover(); p != nil {
			t.endSpan(spanID, StatusError, panicAttrs(p), true)
			panic(p)
		}
	}()

	v, err := fn(spanCtx)
	t.endSpan(spanID, statusOf(err), errorAttrs(err), true)
	return v, err
}

// TraceAsync runs fn on a new goroutine inside a child span of the trace
// active in ctx and delivers its error on the returned channel, which is
// closed afterwards. The span stays open until fn returns. If ctx is
// done first the span ends immediately with StatusError and
// cancelled=true; the channel still delivers fn's own result.
func (t *Tracer) TraceAsync(ctx context.Context, name string, fn func(context.Context) error, attrs map[string]any) <-chan error {
	out := make(chan error, 1)
	spanCtx, spanID, ok := t.startChild(ctx, name, attrs)
	if !ok {
		go func() {
			defer close(out)
			out <- fn(ctx)
		}()
		return out
	}

	result := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				t.endSpan(spanID, StatusError, panicAttrs(p), false)
				panic(p)
			}
		}()
		result <- fn(spanCtx)
	}()

	go func() {
		defer close(out)
		var err error
		select {
		case err = <-result:
		case <-ctx.Done():
			t.endSpan(spanID, StatusError, map[string]any{
				AttrCancelled:    true,
				AttrErrorMessage: ctx.Err().Error(),
			}, false)
			err = <-result
		}
		// No-op when cancellation already closed the span.
		t.endSpan(spanID, statusOf(err), errorAttrs(err), false)
		out <- err
	}()
	return out
}

// startChild opens a span under the trace context in ctx and returns a
// context carrying the child. It reports false when ctx has no trace or
// the trace is gone.
func (t *Tracer) startChild(ctx context.Context, name string, attrs map[string]any) (context.Context, string, bool) {
	if t == nil {
		return ctx, "", false
	}
	tc, ok := FromContext(ctx)
	if !ok {
		return ctx, "", false
	}
	spanID, err := t.StartSpan(tc.TraceID, name, tc.SpanID, attrs)
	if err != nil {
		return ctx, "", false
	}
	child := TraceContext{
		TraceID:      tc.TraceID,
		SpanID:       spanID,
		ParentSpanID: tc.SpanID,
		Baggage:      tc.Baggage,
	}
	return ContextWithTrace(ctx, child), spanID, true
}

func statusOf(err error) Status {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

func errorAttrs(err error) map[string]any {
	if err == nil {
		return nil
	}
	return map[string]any{AttrErrorMessage: err.Error()}
}

func panicAttrs(p any) map[string]any {
	return map[string]any{
		AttrErrorMessage: panicMessage(p),
		AttrPanic:        true,
	}
}

func panicMessage(p any) string {
	if err, ok := p.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(p)
}
