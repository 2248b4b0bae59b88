package tracing

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Header names used to propagate a trace context. Keys are lowercase;
// extraction matches them case-insensitively.
const (
	HeaderTraceID      = "trace-id"
	HeaderSpanID       = "span-id"
	HeaderParentSpanID = "parent-span-id"
	HeaderBaggage      = "baggage"

	// HeaderAltTraceID is accepted when trace-id is absent.
	HeaderAltTraceID = "x-trace-id"

	// HeaderTraceParent is the W3C Trace Context header, accepted when
	// neither trace id header is present.
	HeaderTraceParent = "traceparent"
)

// Response headers set by Middleware.
const (
	ResponseHeaderTraceID = "X-Trace-ID"
	ResponseHeaderSpanID  = "X-Span-ID"
)

// InjectHeaders serializes the active trace context of ctx into a header
// map. Baggage is JSON encoded. Without an active context the map is
// empty.
func InjectHeaders(ctx context.Context) map[string]string {
	headers := make(map[string]string, 4)
	tc, ok := FromContext(ctx)
	if !ok {
		return headers
	}
	headers[HeaderTraceID] = tc.TraceID
	headers[HeaderSpanID] = tc.SpanID
	if tc.ParentSpanID != "" {
		headers[HeaderParentSpanID] = tc.ParentSpanID
	}
	if len(tc.Baggage) > 0 {
		if data, err := json.Marshal(tc.Baggage); err == nil {
			headers[HeaderBaggage] = string(data)
		}
	}
	return headers
}

// ExtractFromHeaders rebuilds a trace context from a header map. The
// trace id is read from trace-id, then x-trace-id, then a valid
// traceparent. A traceparent for the same trace also sets Sampled. It
// reports false when no trace id is present.
func ExtractFromHeaders(headers map[string]string) (TraceContext, bool) {
	lower := make(map[string]string, len(headers))
	for k, v := range headers {
		lower[strings.ToLower(k)] = strings.TrimSpace(v)
	}

	tc := TraceContext{
		TraceID:      lower[HeaderTraceID],
		SpanID:       lower[HeaderSpanID],
		ParentSpanID: lower[HeaderParentSpanID],
	}
	if tc.TraceID == "" {
		tc.TraceID = lower[HeaderAltTraceID]
	}
	if tc.TraceID == "" {
		if _, traceID, parentID, _, valid := ParseTraceParent(lower[HeaderTraceParent]); valid {
			tc.TraceID = strings.ToLower(traceID)
			if tc.SpanID == "" {
				tc.SpanID = strings.ToLower(parentID)
			}
		}
	}
	if tc.TraceID == "" {
		return TraceContext{}, false
	}
	if tp := lower[HeaderTraceParent]; tp != "" {
		if _, traceID, _, _, valid := ParseTraceParent(tp); valid && strings.EqualFold(traceID, tc.TraceID) {
			sampled := IsSampledFromTraceParent(tp)
			tc.Sampled = &sampled
		}
	}
	tc.Baggage = parseBaggage(lower[HeaderBaggage])
	return tc, true
}

// parseBaggage accepts a JSON object or a W3C baggage list.
func parseBaggage(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out
	}
	b, err := baggage.Parse(raw)
	if err != nil || b.Len() == 0 {
		return nil
	}
	out = make(map[string]string, b.Len())
	for _, m := range b.Members() {
		out[m.Key()] = m.Value()
	}
	return out
}

// InjectHTTP writes the active trace context of ctx into h. When the ids
// are W3C compatible a traceparent header is written as well.
func InjectHTTP(ctx context.Context, h http.Header) {
	for k, v := range InjectHeaders(ctx) {
		h.Set(k, v)
	}
	tc, ok := FromContext(ctx)
	if !ok {
		return
	}
	tid, err := trace.TraceIDFromHex(tc.TraceID)
	if err != nil {
		return
	}
	sid, err := trace.SpanIDFromHex(tc.SpanID)
	if err != nil {
		return
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	propagation.TraceContext{}.Inject(trace.ContextWithSpanContext(ctx, sc), propagation.HeaderCarrier(h))
}

// ExtractHTTP reads a trace context from request headers.
func ExtractHTTP(h http.Header) (TraceContext, bool) {
	headers := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return ExtractFromHeaders(headers)
}

// Middleware traces every request. A trace propagated in the request
// headers is continued, otherwise a new trace is started. The handler
// runs inside an "http.server" span whose context is attached to the
// request. Responses with a 5xx status, or a panicking handler, end the
// span and trace with StatusError.
func Middleware(t *Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attrs := map[string]any{
				AttrHTTPMethod: r.Method,
				AttrHTTPRoute:  r.URL.Path,
			}
			if ua := r.UserAgent(); ua != "" {
				attrs[AttrHTTPUserAgent] = ua
			}
			name := r.Method + " " + r.URL.Path

			var tc TraceContext
			created := true
			if remote, ok := ExtractHTTP(r.Header); ok {
				tc, created = t.ContinueTrace(remote, name, attrs)
			} else {
				tc = t.StartTrace(name, attrs)
			}

			spanID, err := t.StartSpan(tc.TraceID, "http.server", "", attrs)
			if err == nil {
				tc = TraceContext{
					TraceID:      tc.TraceID,
					SpanID:       spanID,
					ParentSpanID: tc.ParentSpanID,
					Baggage:      tc.Baggage,
				}
			}
			w.Header().Set(ResponseHeaderTraceID, tc.TraceID)
			w.Header().Set(ResponseHeaderSpanID, tc.SpanID)

			rec := &statusRecorder{ResponseWriter: w}
			finish := func(status Status, extra map[string]any) {
				if spanID != "" {
					t.EndSpan(spanID, status, extra)
				}
				if created {
					t.SetTraceAttributes(tc.TraceID, map[string]any{AttrHTTPStatusCode: extra[AttrHTTPStatusCode]})
					t.EndTrace(tc.TraceID, status)
				}
			}
			defer func() {
				if p := recover(); p != nil {
					finish(StatusError, map[string]any{
						AttrHTTPStatusCode: http.StatusInternalServerError,
						AttrPanic:          true,
						AttrErrorMessage:   panicMessage(p),
					})
					panic(p)
				}
			}()

			next.ServeHTTP(rec, r.WithContext(ContextWithTrace(r.Context(), tc)))

			code := rec.Status()
			status := StatusSuccess
			extra := map[string]any{AttrHTTPStatusCode: code}
			if code >= http.StatusInternalServerError {
				status = StatusError
				extra[AttrErrorMessage] = http.StatusText(code)
			}
			finish(status, extra)
		})
	}
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Status returns the written status, 200 when nothing was written.
func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// ValidateTraceParent validates the traceparent header format.
// Returns true if the header is valid according to W3C Trace Context spec.
//
// Format: version-trace_id-parent_id-trace_flags
//   - version: 2 hex digits (00)
//   - trace_id: 32 hex digits (128-bit)
//   - parent_id: 16 hex digits (64-bit)
//   - trace_flags: 2 hex digits (8-bit)
//
// Example: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
func ValidateTraceParent(traceparent string) bool {
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return false
	}

	if len(parts[0]) != 2 || !isHexString(parts[0]) {
		return false
	}
	if len(parts[1]) != 32 || !isHexString(parts[1]) {
		return false
	}
	if len(parts[2]) != 16 || !isHexString(parts[2]) {
		return false
	}
	if len(parts[3]) != 2 || !isHexString(parts[3]) {
		return false
	}

	// All-zero ids are invalid
	if parts[1] == "00000000000000000000000000000000" {
		return false
	}
	if parts[2] == "0000000000000000" {
		return false
	}

	return true
}

// isHexString checks if a string contains only hexadecimal characters.
func isHexString(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// ParseTraceParent parses a traceparent header into its components.
// Returns empty strings if the header is invalid.
func ParseTraceParent(traceparent string) (version, traceID, parentID, flags string, valid bool) {
	if !ValidateTraceParent(traceparent) {
		return "", "", "", "", false
	}

	parts := strings.Split(traceparent, "-")
	return parts[0], parts[1], parts[2], parts[3], true
}

// IsSampledFromTraceParent checks if a trace is sampled based on the
// traceparent header's trace flags.
func IsSampledFromTraceParent(traceparent string) bool {
	_, _, _, flags, valid := ParseTraceParent(traceparent)
	if !valid {
		return false
	}

	flagsByte, err := strconv.ParseUint(flags, 16, 8)
	if err != nil {
		return false
	}
	return flagsByte&0x01 == 0x01
}
