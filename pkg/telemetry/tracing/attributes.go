package tracing

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys used by the tracing helpers and middleware.
const (
	// Error attributes
	AttrErrorMessage = "error.message"
	AttrPanic        = "error.panic"
	AttrCancelled    = "cancelled"

	// HTTP attributes
	AttrHTTPMethod     = "http.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.status_code"
	AttrHTTPUserAgent  = "http.user_agent"

	// Set on shipped spans that were still open when their trace ended.
	AttrIncomplete = "beacon.incomplete"
)

// Attributes is a JSON-like attribute map. Values stored by the tracer
// are always one of string, bool, int64, float64, []string or a nested
// Attributes; anything else is converted when it is recorded.
type Attributes map[string]any

// Clone returns a deep copy of a.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		switch val := v.(type) {
		case Attributes:
			out[k] = val.Clone()
		case []string:
			out[k] = append([]string(nil), val...)
		default:
			out[k] = v
		}
	}
	return out
}

// Keys returns the attribute keys in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mergeAttributes copies normalized values from src into dst, allocating
// dst when needed.
func mergeAttributes(dst Attributes, src map[string]any) Attributes {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(Attributes, len(src))
	}
	for k, v := range src {
		dst[k] = normalizeValue(v)
	}
	return dst
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case string, bool, int64, float64:
		return val
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return uintValue(uint64(val))
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return uintValue(val)
	case float32:
		return float64(val)
	case time.Duration:
		return val.String()
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case []string:
		return append([]string(nil), val...)
	case Attributes:
		return mergeAttributes(nil, val)
	case map[string]any:
		return mergeAttributes(nil, val)
	case map[string]string:
		out := make(Attributes, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func uintValue(v uint64) any {
	if v > math.MaxInt64 {
		return float64(v)
	}
	return int64(v)
}

// keyValues converts attributes to sorted OpenTelemetry key-values.
// Nested maps are encoded as JSON strings.
func keyValues(a Attributes) []attribute.KeyValue {
	if len(a) == 0 {
		return nil
	}
	kvs := make([]attribute.KeyValue, 0, len(a))
	for _, k := range a.Keys() {
		kvs = append(kvs, keyValue(k, a[k]))
	}
	return kvs
}

func keyValue(k string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(k, val)
	case bool:
		return attribute.Bool(k, val)
	case int64:
		return attribute.Int64(k, val)
	case float64:
		return attribute.Float64(k, val)
	case []string:
		return attribute.StringSlice(k, val)
	case Attributes:
		data, err := json.Marshal(val)
		if err != nil {
			return attribute.String(k, fmt.Sprint(val))
		}
		return attribute.String(k, string(data))
	default:
		return attribute.String(k, fmt.Sprint(val))
	}
}
