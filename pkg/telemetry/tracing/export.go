package tracing

import (
	"fmt"
	"math"
)

// InstrumentationName is the instrumentation library reported in exports.
const InstrumentationName = "mercator-hq/beacon/tracing"

// OTLP status codes used in exports.
const (
	OTLPStatusOK    = "OK"
	OTLPStatusError = "ERROR"
)

// OTLPExport is an OTLP/JSON-shaped rendering of one trace.
type OTLPExport struct {
	ResourceSpans []OTLPResourceSpans `json:"resourceSpans"`
}

type OTLPResourceSpans struct {
	Resource                    OTLPResource                      `json:"resource"`
	InstrumentationLibrarySpans []OTLPInstrumentationLibrarySpans `json:"instrumentationLibrarySpans"`
}

type OTLPResource struct {
	Attributes []OTLPKeyValue `json:"attributes"`
}

type OTLPInstrumentationLibrarySpans struct {
	InstrumentationLibrary OTLPInstrumentationLibrary `json:"instrumentationLibrary"`
	Spans                  []OTLPSpan                 `json:"spans"`
}

type OTLPInstrumentationLibrary struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// OTLPSpan is one flattened span. Times are unix nanoseconds; an open
// span has no end time.
type OTLPSpan struct {
	TraceID           string         `json:"traceId"`
	SpanID            string         `json:"spanId"`
	ParentSpanID      string         `json:"parentSpanId,omitempty"`
	Name              string         `json:"name"`
	StartTimeUnixNano int64          `json:"startTimeUnixNano"`
	EndTimeUnixNano   int64          `json:"endTimeUnixNano,omitempty"`
	Attributes        []OTLPKeyValue `json:"attributes"`
	Events            []OTLPEvent    `json:"events"`
	Status            OTLPStatus     `json:"status"`
}

type OTLPEvent struct {
	TimeUnixNano int64          `json:"timeUnixNano"`
	Name         string         `json:"name"`
	Attributes   []OTLPKeyValue `json:"attributes,omitempty"`
}

type OTLPStatus struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type OTLPKeyValue struct {
	Key   string       `json:"key"`
	Value OTLPAnyValue `json:"value"`
}

// OTLPAnyValue holds exactly one populated field.
type OTLPAnyValue struct {
	StringValue *string          `json:"stringValue,omitempty"`
	BoolValue   *bool            `json:"boolValue,omitempty"`
	IntValue    *int64           `json:"intValue,omitempty"`
	DoubleValue *float64         `json:"doubleValue,omitempty"`
	ArrayValue  *OTLPArrayValue  `json:"arrayValue,omitempty"`
	KvlistValue *OTLPKvlistValue `json:"kvlistValue,omitempty"`
}

type OTLPArrayValue struct {
	Values []OTLPAnyValue `json:"values"`
}

type OTLPKvlistValue struct {
	Values []OTLPKeyValue `json:"values"`
}

// ExportTrace renders a stored trace in OTLP shape, or returns nil when
// the trace is unknown.
func (t *Tracer) ExportTrace(traceID string) *OTLPExport {
	tr, ok := t.GetTrace(traceID)
	if !ok {
		t.logger.Warn("cannot export trace: trace not found", "trace_id", traceID)
		return nil
	}
	name, version := t.ServiceName()
	return ToOTLP(tr, name, version)
}

// ToOTLP renders a trace snapshot in OTLP shape. Spans are flattened
// depth-first, parents before children.
func ToOTLP(tr *Trace, serviceName, serviceVersion string) *OTLPExport {
	resAttrs := Attributes{"service.name": serviceName}
	if serviceVersion != "" {
		resAttrs["service.version"] = serviceVersion
	}

	spans := make([]OTLPSpan, 0)
	tr.Walk(func(s *Span) {
		spans = append(spans, otlpSpan(s))
	})

	return &OTLPExport{
		ResourceSpans: []OTLPResourceSpans{{
			Resource: OTLPResource{Attributes: otlpAttributes(resAttrs)},
			InstrumentationLibrarySpans: []OTLPInstrumentationLibrarySpans{{
				InstrumentationLibrary: OTLPInstrumentationLibrary{
					Name:    InstrumentationName,
					Version: serviceVersion,
				},
				Spans: spans,
			}},
		}},
	}
}

func otlpSpan(s *Span) OTLPSpan {
	out := OTLPSpan{
		TraceID:           s.TraceID,
		SpanID:            s.ID,
		ParentSpanID:      s.ParentSpanID,
		Name:              s.Name,
		StartTimeUnixNano: s.StartTime.UnixNano(),
		Attributes:        otlpAttributes(s.Attributes),
		Events:            make([]OTLPEvent, 0, len(s.Events)),
		Status:            otlpStatus(s),
	}
	if s.EndTime != nil {
		out.EndTimeUnixNano = s.EndTime.UnixNano()
	}
	for _, ev := range s.Events {
		out.Events = append(out.Events, OTLPEvent{
			TimeUnixNano: ev.Timestamp.UnixNano(),
			Name:         ev.Name,
			Attributes:   otlpAttributes(ev.Attributes),
		})
	}
	return out
}

func otlpStatus(s *Span) OTLPStatus {
	if s.Status == StatusSuccess {
		return OTLPStatus{Code: OTLPStatusOK}
	}
	st := OTLPStatus{Code: OTLPStatusError}
	if msg, ok := s.Attributes[AttrErrorMessage].(string); ok {
		st.Message = msg
	}
	return st
}

func otlpAttributes(a Attributes) []OTLPKeyValue {
	kvs := make([]OTLPKeyValue, 0, len(a))
	for _, k := range a.Keys() {
		kvs = append(kvs, OTLPKeyValue{Key: k, Value: otlpValue(a[k])})
	}
	return kvs
}

func otlpValue(v any) OTLPAnyValue {
	switch val := v.(type) {
	case string:
		return OTLPAnyValue{StringValue: &val}
	case bool:
		return OTLPAnyValue{BoolValue: &val}
	case int64:
		return OTLPAnyValue{IntValue: &val}
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			s := fmt.Sprint(val)
			return OTLPAnyValue{StringValue: &s}
		}
		return OTLPAnyValue{DoubleValue: &val}
	case []string:
		values := make([]OTLPAnyValue, len(val))
		for i := range val {
			values[i] = OTLPAnyValue{StringValue: &val[i]}
		}
		return OTLPAnyValue{ArrayValue: &OTLPArrayValue{Values: values}}
	case Attributes:
		return OTLPAnyValue{KvlistValue: &OTLPKvlistValue{Values: otlpAttributes(val)}}
	default:
		s := fmt.Sprint(val)
		return OTLPAnyValue{StringValue: &s}
	}
}
