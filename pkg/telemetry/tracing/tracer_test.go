package tracing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/beacon/pkg/telemetry/logging"
	"mercator-hq/beacon/pkg/telemetry/metrics"
)

// fakeClock advances by step on every reading.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// recordingLogger captures log messages by level.
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) record(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, level+": "+msg+" "+fmt.Sprint(args...))
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestTracer_RequestScenario(t *testing.T) {
	tracer := NewTracer(WithClock(newFakeClock(time.Millisecond).Now))

	tc := tracer.StartTrace("request-A", nil)
	s1, err := tracer.StartSpan(tc.TraceID, "handler", "", nil)
	if err != nil {
		t.Fatalf("StartSpan(handler) error = %v", err)
	}
	s2, err := tracer.StartSpan(tc.TraceID, "db-query", s1, nil)
	if err != nil {
		t.Fatalf("StartSpan(db-query) error = %v", err)
	}
	if !tracer.AddEvent(s2, "query-sent", map[string]any{"rows": 3}) {
		t.Fatal("AddEvent() = false, want true")
	}
	if !tracer.EndSpan(s2, StatusSuccess, nil) {
		t.Fatal("EndSpan(s2) = false, want true")
	}
	if !tracer.EndSpan(s1, StatusSuccess, nil) {
		t.Fatal("EndSpan(s1) = false, want true")
	}
	if ended := tracer.EndTrace(tc.TraceID, StatusSuccess); ended == nil {
		t.Fatal("EndTrace() = nil")
	}

	tr, ok := tracer.GetTrace(tc.TraceID)
	if !ok {
		t.Fatal("GetTrace() not found")
	}
	if got := tr.Spans[0].Children[0].ID; got != s2 {
		t.Errorf("spans[0].children[0].id = %q, want %q", got, s2)
	}
	if tr.Spans[0].Status != StatusSuccess {
		t.Errorf("S1 status = %q, want success", tr.Spans[0].Status)
	}
	if tr.Status != StatusSuccess {
		t.Errorf("trace status = %q, want success", tr.Status)
	}
	if !AllSpansCompleted(tr) {
		t.Error("AllSpansCompleted() = false, want true")
	}
	events := tr.Spans[0].Children[0].Events
	if len(events) != 1 || events[0].Name != "query-sent" {
		t.Fatalf("events = %+v, want one query-sent event", events)
	}
	if got := events[0].Attributes["rows"]; got != int64(3) {
		t.Errorf("event rows = %v (%T), want int64 3", got, got)
	}
	if tr.Spans[0].Children[0].ParentSpanID != s1 {
		t.Errorf("child parent = %q, want %q", tr.Spans[0].Children[0].ParentSpanID, s1)
	}
	if tracer.ActiveSpanCount() != 0 {
		t.Errorf("ActiveSpanCount() = %d, want 0", tracer.ActiveSpanCount())
	}
}

func TestTracer_StartSpanUnknownTrace(t *testing.T) {
	logger := &recordingLogger{}
	tracer := NewTracer(WithLogger(logger))

	id, err := tracer.StartSpan("missing", "work", "", nil)
	if !errors.Is(err, ErrTraceNotFound) {
		t.Fatalf("StartSpan() error = %v, want ErrTraceNotFound", err)
	}
	if id != "" {
		t.Errorf("StartSpan() id = %q, want empty", id)
	}
	if !logger.contains("warn: cannot start span") {
		t.Error("expected a warning for the unknown trace")
	}
}

func TestTracer_EndSpanIsIdempotent(t *testing.T) {
	logger := &recordingLogger{}
	tracer := NewTracer(WithLogger(logger))
	tc := tracer.StartTrace("t", nil)
	span, _ := tracer.StartSpan(tc.TraceID, "s", "", nil)

	if !tracer.EndSpan(span, StatusError, map[string]any{"first": true}) {
		t.Fatal("first EndSpan() = false")
	}
	first, _ := tracer.GetTrace(tc.TraceID)

	tests := []struct {
		name string
		id   string
	}{
		{name: "already ended", id: span},
		{name: "never existed", id: "0000000000000bad"},
		{name: "empty id", id: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tracer.EndSpan(tt.id, StatusSuccess, map[string]any{"second": true}) {
				t.Error("EndSpan() = true, want false")
			}
		})
	}

	after, _ := tracer.GetTrace(tc.TraceID)
	got := after.Spans[0]
	if got.Status != StatusError {
		t.Errorf("status = %q, want error", got.Status)
	}
	if _, ok := got.Attributes["second"]; ok {
		t.Error("second EndSpan merged attributes")
	}
	if !got.EndTime.Equal(*first.Spans[0].EndTime) {
		t.Error("second EndSpan changed the end time")
	}
	if !logger.contains("warn: cannot end span") {
		t.Error("expected a warning for ending an inactive span")
	}
	if tracer.AddEvent(span, "late", nil) {
		t.Error("AddEvent() on an ended span = true, want false")
	}
}

func TestTracer_DurationMatchesEndMinusStart(t *testing.T) {
	clock := newFakeClock(7 * time.Millisecond)
	tracer := NewTracer(WithClock(clock.Now))
	tc := tracer.StartTrace("t", nil)

	var ids []string
	for i := 0; i < 5; i++ {
		id, _ := tracer.StartSpan(tc.TraceID, fmt.Sprintf("s%d", i), "", nil)
		ids = append(ids, id)
	}
	for i := len(ids) - 1; i >= 0; i-- {
		tracer.EndSpan(ids[i], StatusSuccess, nil)
	}

	// A clock that steps backwards must not yield a negative duration.
	backwards, _ := tracer.StartSpan(tc.TraceID, "backwards", "", nil)
	clock.Set(clock.Now().Add(-time.Hour))
	tracer.EndSpan(backwards, StatusSuccess, nil)

	tr, _ := tracer.GetTrace(tc.TraceID)
	tr.Walk(func(s *Span) {
		if s.EndTime == nil {
			t.Fatalf("span %s has no end time", s.Name)
		}
		if s.Duration != s.EndTime.Sub(s.StartTime) {
			t.Errorf("span %s duration = %v, want %v", s.Name, s.Duration, s.EndTime.Sub(s.StartTime))
		}
		if s.Duration < 0 {
			t.Errorf("span %s duration = %v, want >= 0", s.Name, s.Duration)
		}
	})
}

func TestTracer_EndTraceWithOpenSpans(t *testing.T) {
	logger := &recordingLogger{}
	tracer := NewTracer(WithLogger(logger))
	tc := tracer.StartTrace("t", nil)
	root, _ := tracer.StartSpan(tc.TraceID, "root", "", nil)
	child, _ := tracer.StartSpan(tc.TraceID, "child", root, nil)
	tracer.EndSpan(root, StatusSuccess, nil)

	tr := tracer.EndTrace(tc.TraceID, StatusError)
	if tr == nil {
		t.Fatal("EndTrace() = nil")
	}
	if tr.Status != StatusError {
		t.Errorf("status = %q, want error", tr.Status)
	}
	if tr.EndTime == nil {
		t.Error("EndTime not set")
	}
	if AllSpansCompleted(tr) {
		t.Error("AllSpansCompleted() = true with an open grandchild")
	}
	if !logger.contains("trace ended with incomplete spans") {
		t.Error("expected incomplete spans warning")
	}

	// The open span can still be closed after the trace ended.
	if !tracer.EndSpan(child, StatusSuccess, nil) {
		t.Error("EndSpan(child) after EndTrace = false, want true")
	}
	tr, _ = tracer.GetTrace(tc.TraceID)
	if !AllSpansCompleted(tr) {
		t.Error("AllSpansCompleted() = false after closing the child")
	}
}

func TestTracer_EndTraceTwice(t *testing.T) {
	clock := newFakeClock(time.Second)
	tracer := NewTracer(WithClock(clock.Now))
	tc := tracer.StartTrace("t", nil)

	first := tracer.EndTrace(tc.TraceID, StatusSuccess)
	second := tracer.EndTrace(tc.TraceID, StatusError)
	if second == nil {
		t.Fatal("second EndTrace() = nil")
	}
	if second.Status != StatusSuccess {
		t.Errorf("status after second EndTrace = %q, want success", second.Status)
	}
	if !second.EndTime.Equal(*first.EndTime) {
		t.Error("second EndTrace changed the end time")
	}
	if got := tracer.EndTrace("missing", StatusSuccess); got != nil {
		t.Errorf("EndTrace(missing) = %+v, want nil", got)
	}
}

func TestTracer_UnknownParentBecomesRoot(t *testing.T) {
	tracer := NewTracer()
	tc := tracer.StartTrace("t", nil)

	// The initial span id of a trace context is not a span in the trace.
	id, err := tracer.StartSpan(tc.TraceID, "s", tc.SpanID, nil)
	if err != nil {
		t.Fatalf("StartSpan() error = %v", err)
	}
	tr, _ := tracer.GetTrace(tc.TraceID)
	if len(tr.Spans) != 1 || tr.Spans[0].ID != id {
		t.Fatalf("roots = %+v, want the new span", tr.Spans)
	}
	if tr.Spans[0].ParentSpanID != "" {
		t.Errorf("ParentSpanID = %q, want empty", tr.Spans[0].ParentSpanID)
	}

	// A parent from another trace does not attach either.
	other := tracer.StartTrace("other", nil)
	foreign, _ := tracer.StartSpan(other.TraceID, "foreign", "", nil)
	if _, err := tracer.StartSpan(tc.TraceID, "s2", foreign, nil); err != nil {
		t.Fatalf("StartSpan() error = %v", err)
	}
	tr, _ = tracer.GetTrace(tc.TraceID)
	if len(tr.Spans) != 2 {
		t.Errorf("roots = %d, want 2", len(tr.Spans))
	}
}

func TestTracer_Eviction(t *testing.T) {
	tracer := NewTracer(WithMaxTraces(2), WithClock(newFakeClock(time.Millisecond).Now))

	first := tracer.StartTrace("first", nil)
	if _, err := tracer.StartSpan(first.TraceID, "open", "", nil); err != nil {
		t.Fatalf("StartSpan() error = %v", err)
	}
	second := tracer.StartTrace("second", nil)
	third := tracer.StartTrace("third", nil)

	if got := tracer.TraceCount(); got != 2 {
		t.Fatalf("TraceCount() = %d, want 2", got)
	}
	if _, ok := tracer.GetTrace(first.TraceID); ok {
		t.Error("oldest trace was not evicted")
	}
	for _, id := range []string{second.TraceID, third.TraceID} {
		if _, ok := tracer.GetTrace(id); !ok {
			t.Errorf("trace %s evicted, want kept", id)
		}
	}
	if got := tracer.ActiveSpanCount(); got != 0 {
		t.Errorf("ActiveSpanCount() = %d, want 0 after evicting the open span", got)
	}
	if _, err := tracer.StartSpan(first.TraceID, "late", "", nil); !errors.Is(err, ErrTraceNotFound) {
		t.Errorf("StartSpan() on evicted trace error = %v, want ErrTraceNotFound", err)
	}
}

func TestTracer_EvictionTieBreaksOnInsertionOrder(t *testing.T) {
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tracer := NewTracer(WithMaxTraces(2), WithClock(func() time.Time { return frozen }))

	a := tracer.StartTrace("a", nil)
	b := tracer.StartTrace("b", nil)
	c := tracer.StartTrace("c", nil)

	if _, ok := tracer.GetTrace(a.TraceID); ok {
		t.Error("first inserted trace kept, want evicted")
	}
	if _, ok := tracer.GetTrace(b.TraceID); !ok {
		t.Error("second trace evicted")
	}
	if _, ok := tracer.GetTrace(c.TraceID); !ok {
		t.Error("third trace evicted")
	}
}

func TestTracer_GetAllTraces(t *testing.T) {
	tracer := NewTracer(WithClock(newFakeClock(time.Second).Now))
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, tracer.StartTrace(fmt.Sprintf("t%d", i), nil).TraceID)
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "all", limit: 0, want: []string{ids[4], ids[3], ids[2], ids[1], ids[0]}},
		{name: "limited", limit: 2, want: []string{ids[4], ids[3]}},
		{name: "limit above size", limit: 10, want: []string{ids[4], ids[3], ids[2], ids[1], ids[0]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tracer.GetAllTraces(tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("traces[%d] = %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestTracer_SearchTraces(t *testing.T) {
	clock := newFakeClock(time.Second)
	tracer := NewTracer(WithClock(clock.Now))

	checkout := tracer.StartTrace("GET /checkout", nil)
	cart := tracer.StartTrace("GET /cart", nil)
	pending := tracer.StartTrace("POST /checkout", nil)
	tracer.EndTrace(cart.TraceID, StatusError)
	tracer.EndTrace(checkout.TraceID, StatusSuccess)

	checkoutTrace, _ := tracer.GetTrace(checkout.TraceID)
	cartTrace, _ := tracer.GetTrace(cart.TraceID)

	tests := []struct {
		name  string
		query TraceQuery
		want  []string
	}{
		{name: "no filter", query: TraceQuery{}, want: []string{pending.TraceID, cart.TraceID, checkout.TraceID}},
		{name: "name substring", query: TraceQuery{Name: "checkout"}, want: []string{pending.TraceID, checkout.TraceID}},
		{name: "name case-insensitive", query: TraceQuery{Name: "CART"}, want: []string{cart.TraceID}},
		{name: "status", query: TraceQuery{Status: StatusError}, want: []string{cart.TraceID}},
		{name: "pending status", query: TraceQuery{Status: StatusPending}, want: []string{pending.TraceID}},
		{name: "min duration", query: TraceQuery{MinDuration: checkoutTrace.Duration}, want: []string{checkout.TraceID}},
		{name: "max duration", query: TraceQuery{MaxDuration: cartTrace.Duration}, want: []string{cart.TraceID}},
		{name: "started after", query: TraceQuery{StartedAfter: cartTrace.StartTime}, want: []string{pending.TraceID, cart.TraceID}},
		{name: "started before", query: TraceQuery{StartedBefore: cartTrace.StartTime}, want: []string{cart.TraceID, checkout.TraceID}},
		{name: "limit", query: TraceQuery{Limit: 1}, want: []string{pending.TraceID}},
		{name: "no match", query: TraceQuery{Name: "missing"}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tracer.SearchTraces(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("results[%d] = %s (%s), want %s", i, got[i].ID, got[i].Name, tt.want[i])
				}
			}
		})
	}
}

func TestTracer_SnapshotIsCopy(t *testing.T) {
	tracer := NewTracer()
	tc := tracer.StartTrace("t", map[string]any{"k": "v"})
	span, _ := tracer.StartSpan(tc.TraceID, "s", "", map[string]any{"nested": map[string]any{"a": 1}})

	tr, _ := tracer.GetTrace(tc.TraceID)
	tr.Attributes["k"] = "changed"
	tr.Spans[0].Attributes["nested"].(Attributes)["a"] = int64(99)
	tr.Spans = nil

	again, _ := tracer.GetTrace(tc.TraceID)
	if again.Attributes["k"] != "v" {
		t.Errorf("trace attribute = %v, want v", again.Attributes["k"])
	}
	if len(again.Spans) != 1 || again.Spans[0].ID != span {
		t.Fatal("span tree modified through snapshot")
	}
	if got := again.Spans[0].Attributes["nested"].(Attributes)["a"]; got != int64(1) {
		t.Errorf("nested attribute = %v, want 1", got)
	}
}

func TestTracer_ConcurrentSpansOnSameTrace(t *testing.T) {
	tracer := NewTracer()
	tc := tracer.StartTrace("t", nil)
	parent, _ := tracer.StartSpan(tc.TraceID, "parent", "", nil)

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := tracer.StartSpan(tc.TraceID, fmt.Sprintf("child-%d", i), parent, nil)
			if err != nil {
				t.Errorf("StartSpan() error = %v", err)
				return
			}
			tracer.AddEvent(id, "tick", nil)
			tracer.EndSpan(id, StatusSuccess, nil)
		}(i)
	}
	wg.Wait()
	tracer.EndSpan(parent, StatusSuccess, nil)

	tr, _ := tracer.GetTrace(tc.TraceID)
	if got := len(tr.Spans[0].Children); got != workers {
		t.Errorf("children = %d, want %d", got, workers)
	}
	if !AllSpansCompleted(tr) {
		t.Error("AllSpansCompleted() = false")
	}
	if tracer.ActiveSpanCount() != 0 {
		t.Errorf("ActiveSpanCount() = %d, want 0", tracer.ActiveSpanCount())
	}
}

func TestTracer_OnTraceEnd(t *testing.T) {
	logger := &recordingLogger{}
	tracer := NewTracer(WithLogger(logger))

	var got []string
	tracer.OnTraceEnd(func(tr *Trace) { panic("hook failure") })
	tracer.OnTraceEnd(func(tr *Trace) { got = append(got, tr.Name) })

	tc := tracer.StartTrace("hooked", nil)
	tracer.EndTrace(tc.TraceID, StatusSuccess)
	tracer.EndTrace(tc.TraceID, StatusSuccess)

	if len(got) != 1 || got[0] != "hooked" {
		t.Errorf("hook calls = %v, want [hooked]", got)
	}
	if !logger.contains("trace end hook panicked") {
		t.Error("expected the panicking hook to be logged")
	}
}

func TestTracer_ContinueTrace(t *testing.T) {
	tracer := NewTracer()
	remote := TraceContext{
		TraceID: "4bf92f3577b34da6a3ce929d0e0e4736",
		SpanID:  "00f067aa0ba902b7",
		Baggage: map[string]string{"tenant": "acme"},
	}

	tc, created := tracer.ContinueTrace(remote, "continued", nil)
	if !created {
		t.Fatal("created = false, want true")
	}
	if tc.TraceID != remote.TraceID || tc.ParentSpanID != remote.SpanID {
		t.Errorf("context = %+v, want trace %s parent %s", tc, remote.TraceID, remote.SpanID)
	}
	if tc.SpanID == "" || tc.SpanID == remote.SpanID {
		t.Errorf("SpanID = %q, want a fresh id", tc.SpanID)
	}
	if tc.Baggage["tenant"] != "acme" {
		t.Errorf("baggage = %v", tc.Baggage)
	}
	tr, ok := tracer.GetTrace(remote.TraceID)
	if !ok {
		t.Fatal("continued trace not registered")
	}
	if tr.RemoteParentSpanID != remote.SpanID {
		t.Errorf("RemoteParentSpanID = %q, want %q", tr.RemoteParentSpanID, remote.SpanID)
	}
	if tr.RemoteSampled != nil {
		t.Errorf("RemoteSampled = %v, want unset", *tr.RemoteSampled)
	}

	unsampled := false
	remoteUnsampled := TraceContext{TraceID: "0af7651916cd43dd8448eb211c80319c", SpanID: "b7ad6b7169203331", Sampled: &unsampled}
	tc, _ = tracer.ContinueTrace(remoteUnsampled, "unsampled", nil)
	if tc.Sampled == nil || *tc.Sampled {
		t.Errorf("context Sampled = %v, want false", tc.Sampled)
	}
	if tr, _ := tracer.GetTrace(remoteUnsampled.TraceID); tr.RemoteSampled == nil || *tr.RemoteSampled {
		t.Errorf("RemoteSampled = %v, want false", tr.RemoteSampled)
	}

	if _, created := tracer.ContinueTrace(remote, "again", nil); created {
		t.Error("second ContinueTrace created a trace")
	}
	if got := tracer.TraceCount(); got != 2 {
		t.Errorf("TraceCount() = %d, want 2", got)
	}

	fresh, created := tracer.ContinueTrace(TraceContext{}, "fresh", nil)
	if !created || fresh.TraceID == "" || fresh.TraceID == remote.TraceID {
		t.Errorf("ContinueTrace(empty) = %+v, %v; want a new trace", fresh, created)
	}
}

func TestTracer_Metrics(t *testing.T) {
	reg := metrics.NewRegistry()
	tracer := NewTracer(WithMetrics(reg, "beacon"), WithMaxTraces(1))

	tc := tracer.StartTrace("a", nil)
	span, _ := tracer.StartSpan(tc.TraceID, "s", "", nil)
	if g, _ := reg.GetGauge("beacon_spans_open"); g.Value() != 1 {
		t.Errorf("spans_open = %v, want 1", g.Value())
	}
	tracer.EndSpan(span, StatusSuccess, nil)
	tracer.EndTrace(tc.TraceID, StatusSuccess)
	tracer.StartTrace("b", nil)

	counters := map[string]float64{
		"beacon_traces_started_total": 2,
		"beacon_traces_ended_total":   1,
		"beacon_traces_evicted_total": 1,
		"beacon_spans_started_total":  1,
	}
	for name, want := range counters {
		c, ok := reg.GetCounter(name)
		if !ok {
			t.Errorf("counter %s not registered", name)
			continue
		}
		if c.Value() != want {
			t.Errorf("%s = %v, want %v", name, c.Value(), want)
		}
	}
	if h, _ := reg.GetHistogram("beacon_trace_duration_seconds"); h.Count() != 1 {
		t.Errorf("trace_duration_seconds count = %d, want 1", h.Count())
	}
	if g, _ := reg.GetGauge("beacon_traces_stored"); g.Value() != 1 {
		t.Errorf("traces_stored = %v, want 1", g.Value())
	}
}

func TestTracer_RedactsAttributes(t *testing.T) {
	tracer := NewTracer(WithRedactor(logging.NewRedactor(nil)))
	tc := tracer.StartTrace("t", map[string]any{"password": "hunter2-is-long", "user": "ada"})
	span, _ := tracer.StartSpan(tc.TraceID, "s", "", map[string]any{"authorization": "Bearer abc.def"})

	tr, _ := tracer.GetTrace(tc.TraceID)
	if got := tr.Attributes["password"]; got == "hunter2-is-long" {
		t.Error("password attribute stored in clear text")
	}
	if got := tr.Attributes["user"]; got != "ada" {
		t.Errorf("user = %v, want ada", got)
	}
	s, _ := tr.FindSpan(span)
	if got := s.Attributes["authorization"]; got == "Bearer abc.def" {
		t.Error("authorization attribute stored in clear text")
	}
}

func TestIDs(t *testing.T) {
	traceRe := regexp.MustCompile(`^[0-9a-f]{32}$`)
	spanRe := regexp.MustCompile(`^[0-9a-f]{16}$`)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tid := newTraceID()
		sid := newSpanID()
		if !traceRe.MatchString(tid) {
			t.Fatalf("trace id %q is not 32 hex characters", tid)
		}
		if !spanRe.MatchString(sid) {
			t.Fatalf("span id %q is not 16 hex characters", sid)
		}
		if sid == "0000000000000000" {
			t.Fatal("span id is all zeros")
		}
		if seen[tid] || seen[sid] {
			t.Fatalf("duplicate id at iteration %d", i)
		}
		seen[tid], seen[sid] = true, true
	}
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "string", in: "s", want: "s"},
		{name: "int", in: 42, want: int64(42)},
		{name: "uint32", in: uint32(7), want: int64(7)},
		{name: "float32", in: float32(0.5), want: float64(0.5)},
		{name: "bool", in: true, want: true},
		{name: "duration", in: 1500 * time.Millisecond, want: "1.5s"},
		{name: "error", in: errors.New("boom"), want: "boom"},
		{name: "nil", in: nil, want: ""},
		{name: "struct", in: struct{ A int }{1}, want: "{1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeValue(tt.in); got != tt.want {
				t.Errorf("normalizeValue(%v) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
			}
		})
	}

	nested := normalizeValue(map[string]any{"n": 1, "deep": map[string]string{"k": "v"}}).(Attributes)
	if nested["n"] != int64(1) {
		t.Errorf("nested n = %v", nested["n"])
	}
	if nested["deep"].(Attributes)["k"] != "v" {
		t.Errorf("nested deep = %v", nested["deep"])
	}
}
