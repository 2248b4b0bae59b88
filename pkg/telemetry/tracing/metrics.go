package tracing

import (
	"time"

	"mercator-hq/beacon/pkg/telemetry/metrics"
)

// tracerMetrics mirrors tracer activity into a metrics registry. A nil
// *tracerMetrics records nothing.
type tracerMetrics struct {
	tracesStarted *metrics.Counter
	tracesEnded   *metrics.Counter
	tracesEvicted *metrics.Counter
	spansStarted  *metrics.Counter
	openSpans     *metrics.Gauge
	storedTraces  *metrics.Gauge
	traceDuration *metrics.Histogram
}

func newTracerMetrics(reg *metrics.Registry, namespace string) *tracerMetrics {
	name := func(s string) string {
		if namespace == "" {
			return s
		}
		return namespace + "_" + s
	}
	return &tracerMetrics{
		tracesStarted: reg.Counter(name("traces_started_total"), "Traces started.", nil),
		tracesEnded:   reg.Counter(name("traces_ended_total"), "Traces ended.", nil),
		tracesEvicted: reg.Counter(name("traces_evicted_total"), "Traces evicted from the trace table.", nil),
		spansStarted:  reg.Counter(name("spans_started_total"), "Spans started.", nil),
		openSpans:     reg.Gauge(name("spans_open"), "Spans currently open.", nil),
		storedTraces:  reg.Gauge(name("traces_stored"), "Traces held in the trace table.", nil),
		traceDuration: reg.Histogram(name("trace_duration_seconds"), "Duration of ended traces.", nil, nil),
	}
}

func (m *tracerMetrics) traceStarted() {
	if m == nil {
		return
	}
	m.tracesStarted.Inc()
}

func (m *tracerMetrics) setStored(n int) {
	if m == nil {
		return
	}
	m.storedTraces.Set(float64(n))
}

func (m *tracerMetrics) traceEnded(d time.Duration, stored int) {
	if m == nil {
		return
	}
	m.tracesEnded.Inc()
	m.traceDuration.Observe(d.Seconds())
	m.storedTraces.Set(float64(stored))
}

func (m *tracerMetrics) traceEvicted(open int) {
	if m == nil {
		return
	}
	m.tracesEvicted.Inc()
	m.openSpans.Set(float64(open))
}

func (m *tracerMetrics) spanStarted(open int) {
	if m == nil {
		return
	}
	m.spansStarted.Inc()
	m.openSpans.Set(float64(open))
}

func (m *tracerMetrics) spanEnded(open int) {
	if m == nil {
		return
	}
	m.openSpans.Set(float64(open))
}
