package tracing

import (
	"errors"
	"time"
)

// ErrTraceNotFound is returned when a trace id is not in the trace table.
var ErrTraceNotFound = errors.New("trace not found")

// Status is the lifecycle state of a trace or span. pending moves to
// success or error exactly once.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Terminal reports whether s is success or error.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// SpanEvent is a point-in-time annotation on a span.
type SpanEvent struct {
	Name       string     `json:"name"`
	Timestamp  time.Time  `json:"timestamp"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// Span is a read-only copy of one span and its descendants.
type Span struct {
	ID           string        `json:"id"`
	TraceID      string        `json:"traceId"`
	ParentSpanID string        `json:"parentSpanId,omitempty"`
	Name         string        `json:"name"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      *time.Time    `json:"endTime,omitempty"`
	Duration     time.Duration `json:"duration"`
	Status       Status        `json:"status"`
	Attributes   Attributes    `json:"attributes"`
	Events       []SpanEvent   `json:"events"`
	Children     []*Span       `json:"children"`
}

// Ended reports whether the span has an end time.
func (s *Span) Ended() bool { return s.EndTime != nil }

// Trace is a read-only copy of a trace. Mutating it does not affect the
// tracer.
type Trace struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	StartTime time.Time     `json:"startTime"`
	EndTime   *time.Time    `json:"endTime,omitempty"`
	Duration  time.Duration `json:"duration"`
	Status    Status        `json:"status"`

	// RemoteParentSpanID is the caller's span when the trace was continued
	// from propagated headers.
	RemoteParentSpanID string `json:"remoteParentSpanId,omitempty"`

	// RemoteSampled is the caller's sampling decision, when it sent one.
	RemoteSampled *bool `json:"remoteSampled,omitempty"`

	Attributes Attributes `json:"attributes"`
	Spans      []*Span    `json:"spans"`
}

// Ended reports whether the trace has an end time.
func (t *Trace) Ended() bool { return t.EndTime != nil }

// Walk visits every span depth-first, parents before children.
func (t *Trace) Walk(fn func(*Span)) {
	var walk func(spans []*Span)
	walk = func(spans []*Span) {
		for _, s := range spans {
			fn(s)
			walk(s.Children)
		}
	}
	walk(t.Spans)
}

// FindSpan returns the span with id, searching the whole tree.
func (t *Trace) FindSpan(id string) (*Span, bool) {
	var found *Span
	t.Walk(func(s *Span) {
		if found == nil && s.ID == id {
			found = s
		}
	})
	return found, found != nil
}

// AllSpansCompleted reports whether every span in the trace, at any
// depth, has ended. A trace without spans is complete.
func AllSpansCompleted(t *Trace) bool {
	if t == nil {
		return true
	}
	return spansCompleted(t.Spans)
}

func spansCompleted(spans []*Span) bool {
	for _, s := range spans {
		if !s.Ended() || !spansCompleted(s.Children) {
			return false
		}
	}
	return true
}

// TraceContext identifies where a unit of work sits in a trace. It is a
// value carried by callers, typically inside a context.Context.
type TraceContext struct {
	TraceID      string            `json:"traceId"`
	SpanID       string            `json:"spanId"`
	ParentSpanID string            `json:"parentSpanId,omitempty"`
	Baggage      map[string]string `json:"baggage,omitempty"`

	// Sampled is the sampling decision carried by a W3C traceparent. It
	// is nil when no decision was propagated.
	Sampled *bool `json:"sampled,omitempty"`
}

// IsValid reports whether tc carries a trace id.
func (tc TraceContext) IsValid() bool { return tc.TraceID != "" }

// Child derives a context in the same trace with a fresh span id whose
// parent is tc.SpanID. Baggage is copied.
func (tc TraceContext) Child() TraceContext {
	return TraceContext{
		TraceID:      tc.TraceID,
		SpanID:       newSpanID(),
		ParentSpanID: tc.SpanID,
		Baggage:      cloneBaggage(tc.Baggage),
		Sampled:      tc.Sampled,
	}
}

func cloneBaggage(b map[string]string) map[string]string {
	if b == nil {
		return nil
	}
	out := make(map[string]string, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
