package tracing

import (
	"sort"
	"sync"
	"time"

	"mercator-hq/beacon/pkg/telemetry/logging"
	"mercator-hq/beacon/pkg/telemetry/metrics"
)

// DefaultMaxTraces bounds the trace table when no limit is configured.
const DefaultMaxTraces = 1000

// spanNode is one span in a trace arena. Children are indexes into the
// same arena, so the tree never holds pointers to itself.
type spanNode struct {
	id       string
	parentID string
	name     string
	start    time.Time
	end      time.Time
	ended    bool
	status   Status
	attrs    Attributes
	events   []SpanEvent
	children []int
}

type traceRecord struct {
	id           string
	name         string
	seq          uint64
	start        time.Time
	end          time.Time
	ended        bool
	status       Status
	remoteParent string
	remoteSample *bool
	attrs        Attributes
	nodes        []spanNode
	roots        []int
	index        map[string]int
	open         int
}

// activeRef locates an open span in its trace arena.
type activeRef struct {
	trace *traceRecord
	idx   int
}

// Tracer owns an in-memory table of traces, each a tree of spans, plus a
// flat index of the spans that are still open. All state is guarded by one
// lock, so span creation and completion on the same trace are
// linearizable.
//
// The tracer never panics or returns an error for unknown ids on the
// write path: those calls log a warning and report false.
type Tracer struct {
	mu     sync.RWMutex
	traces map[string]*traceRecord
	active map[string]activeRef
	seq    uint64
	hooks  []func(*Trace)

	maxTraces      int
	now            func() time.Time
	logger         logging.LevelLogger
	redactor       *logging.Redactor
	serviceName    string
	serviceVersion string
	metrics        *tracerMetrics
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithLogger sets the logger used for warnings. A nil logger discards them.
func WithLogger(l logging.LevelLogger) Option {
	return func(t *Tracer) { t.logger = logging.OrNop(l) }
}

// WithMaxTraces bounds the trace table. Values below 1 keep the default.
func WithMaxTraces(n int) Option {
	return func(t *Tracer) {
		if n > 0 {
			t.maxTraces = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracer) {
		if now != nil {
			t.now = now
		}
	}
}

// WithServiceName sets the service reported in exports.
func WithServiceName(name, version string) Option {
	return func(t *Tracer) {
		t.serviceName = name
		t.serviceVersion = version
	}
}

// WithRedactor masks sensitive attribute values before they are stored.
func WithRedactor(r *logging.Redactor) Option {
	return func(t *Tracer) { t.redactor = r }
}

// WithMetrics records tracer activity in reg under the given namespace.
func WithMetrics(reg *metrics.Registry, namespace string) Option {
	return func(t *Tracer) {
		if reg != nil {
			t.metrics = newTracerMetrics(reg, namespace)
		}
	}
}

// NewTracer creates an empty tracer.
func NewTracer(opts ...Option) *Tracer {
	t := &Tracer{
		traces:      make(map[string]*traceRecord),
		active:      make(map[string]activeRef),
		maxTraces:   DefaultMaxTraces,
		now:         time.Now,
		logger:      logging.Nop(),
		serviceName: "beacon",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ServiceName returns the service name and version reported in exports.
func (t *Tracer) ServiceName() (string, string) {
	return t.serviceName, t.serviceVersion
}

func (t *Tracer) attrs(in map[string]any) Attributes {
	if len(in) == 0 {
		return nil
	}
	if t.redactor != nil {
		in = t.redactor.RedactMap(in)
	}
	return mergeAttributes(nil, in)
}

func (t *Tracer) mergeAttrs(dst Attributes, in map[string]any) Attributes {
	if len(in) == 0 {
		return dst
	}
	if t.redactor != nil {
		in = t.redactor.RedactMap(in)
	}
	return mergeAttributes(dst, in)
}

// StartTrace registers a new pending trace and returns its context. The
// returned span id identifies the caller's position; it is not a span in
// the trace until something is started under it.
func (t *Tracer) StartTrace(name string, attrs map[string]any) TraceContext {
	tc := TraceContext{TraceID: newTraceID(), SpanID: newSpanID()}
	t.register(tc.TraceID, name, "", nil, attrs)
	return tc
}

// ContinueTrace registers a trace under a remote trace id taken from
// propagated headers, recording the remote span and its sampling
// decision as the caller's. When the
// trace id is already known locally nothing is registered and created is
// false. An invalid remote context starts a fresh trace.
func (t *Tracer) ContinueTrace(remote TraceContext, name string, attrs map[string]any) (tc TraceContext, created bool) {
	if !remote.IsValid() {
		return t.StartTrace(name, attrs), true
	}
	tc = TraceContext{
		TraceID:      remote.TraceID,
		SpanID:       newSpanID(),
		ParentSpanID: remote.SpanID,
		Baggage:      cloneBaggage(remote.Baggage),
		Sampled:      remote.Sampled,
	}

	t.mu.RLock()
	_, exists := t.traces[remote.TraceID]
	t.mu.RUnlock()
	if exists {
		return tc, false
	}
	return tc, t.register(remote.TraceID, name, remote.SpanID, remote.Sampled, attrs)
}

func (t *Tracer) register(id, name, remoteParent string, sampled *bool, attrs map[string]any) bool {
	rec := &traceRecord{
		id:           id,
		name:         name,
		start:        t.now(),
		status:       StatusPending,
		remoteParent: remoteParent,
		remoteSample: sampled,
		attrs:        t.attrs(attrs),
		index:        make(map[string]int),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.traces[id]; exists {
		return false
	}
	t.seq++
	rec.seq = t.seq
	t.traces[id] = rec
	t.metrics.traceStarted()
	t.evictLocked()
	t.metrics.setStored(len(t.traces))
	return true
}

// StartSpan opens a span in traceID. When parentSpanID names a span of the
// same trace the new span becomes its child, otherwise it becomes a root
// span. An unknown trace id returns ErrTraceNotFound.
func (t *Tracer) StartSpan(traceID, name, parentSpanID string, attrs map[string]any) (string, error) {
	stored := t.attrs(attrs)
	start := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.traces[traceID]
	if !ok {
		t.logger.Warn("cannot start span: trace not found", "trace_id", traceID, "span_name", name)
		return "", ErrTraceNotFound
	}

	id := newSpanID()
	for _, exists := rec.index[id]; exists; _, exists = rec.index[id] {
		id = newSpanID()
	}

	node := spanNode{
		id:     id,
		name:   name,
		start:  start,
		status: StatusPending,
		attrs:  stored,
	}
	idx := len(rec.nodes)
	if parent, found := rec.index[parentSpanID]; parentSpanID != "" && found {
		node.parentID = parentSpanID
		rec.nodes = append(rec.nodes, node)
		rec.nodes[parent].children = append(rec.nodes[parent].children, idx)
	} else {
		rec.nodes = append(rec.nodes, node)
		rec.roots = append(rec.roots, idx)
	}
	rec.index[id] = idx
	rec.open++
	t.active[id] = activeRef{trace: rec, idx: idx}

	t.metrics.spanStarted(len(t.active))
	return id, nil
}

// EndSpan closes an open span, merging attrs into its attributes. It
// reports false, after logging a warning, when the span is not open.
func (t *Tracer) EndSpan(spanID string, status Status, attrs map[string]any) bool {
	return t.endSpan(spanID, status, attrs, true)
}

func (t *Tracer) endSpan(spanID string, status Status, attrs map[string]any, warn bool) bool {
	if !status.Terminal() {
		status = StatusSuccess
	}
	end := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	ref, ok := t.active[spanID]
	if !ok {
		if warn {
			t.logger.Warn("cannot end span: span not active", "span_id", spanID)
		}
		return false
	}
	delete(t.active, spanID)

	node := &ref.trace.nodes[ref.idx]
	if end.Before(node.start) {
		end = node.start
	}
	node.end = end
	node.ended = true
	node.status = status
	node.attrs = t.mergeAttrs(node.attrs, attrs)
	ref.trace.open--

	t.metrics.spanEnded(len(t.active))
	return true
}

// AddEvent appends an event to an open span. It reports false, after
// logging a warning, when the span is not open.
func (t *Tracer) AddEvent(spanID, name string, attrs map[string]any) bool {
	event := SpanEvent{Name: name, Timestamp: t.now(), Attributes: t.attrs(attrs)}

	t.mu.Lock()
	defer t.mu.Unlock()

	ref, ok := t.active[spanID]
	if !ok {
		t.logger.Warn("cannot add event: span not active", "span_id", spanID, "event", name)
		return false
	}
	node := &ref.trace.nodes[ref.idx]
	node.events = append(node.events, event)
	return true
}

// SetTraceAttributes merges attrs into a trace's own attributes.
func (t *Tracer) SetTraceAttributes(traceID string, attrs map[string]any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.traces[traceID]
	if !ok {
		t.logger.Warn("cannot set attributes: trace not found", "trace_id", traceID)
		return false
	}
	rec.attrs = t.mergeAttrs(rec.attrs, attrs)
	return true
}

// EndTrace finalizes a trace with status and returns a snapshot of it.
// Spans that are still open do not block it; they are reported with a
// warning and stay open until ended or evicted. Ending a trace twice
// logs a warning and returns the already finalized trace. Unknown ids
// return nil.
func (t *Tracer) EndTrace(traceID string, status Status) *Trace {
	if !status.Terminal() {
		status = StatusSuccess
	}
	end := t.now()

	t.mu.Lock()
	rec, ok := t.traces[traceID]
	if !ok {
		t.mu.Unlock()
		t.logger.Warn("cannot end trace: trace not found", "trace_id", traceID)
		return nil
	}
	if rec.ended {
		snap := rec.snapshot()
		t.mu.Unlock()
		t.logger.Warn("trace already ended", "trace_id", traceID)
		return snap
	}

	if end.Before(rec.start) {
		end = rec.start
	}
	rec.end = end
	rec.ended = true
	rec.status = status
	if rec.open > 0 {
		t.logger.Warn("trace ended with incomplete spans",
			"trace_id", traceID,
			"trace_name", rec.name,
			"open_spans", rec.open,
		)
	}

	snap := rec.snapshot()
	var hookSnap *Trace
	hooks := t.hooks
	if len(hooks) > 0 {
		hookSnap = rec.snapshot()
	}

	t.evictLocked()
	t.metrics.traceEnded(rec.end.Sub(rec.start), len(t.traces))
	t.mu.Unlock()

	for _, hook := range hooks {
		t.runHook(hook, hookSnap)
	}
	return snap
}

func (t *Tracer) runHook(hook func(*Trace), tr *Trace) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("trace end hook panicked", "trace_id", tr.ID, "panic", r)
		}
	}()
	hook(tr)
}

// OnTraceEnd registers fn to run after each trace ends. Hooks run
// synchronously on the goroutine that ended the trace, outside the
// tracer lock, and share one snapshot that they must not modify.
func (t *Tracer) OnTraceEnd(fn func(*Trace)) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	hooks := make([]func(*Trace), len(t.hooks), len(t.hooks)+1)
	copy(hooks, t.hooks)
	t.hooks = append(hooks, fn)
}

// evictLocked drops the oldest traces by start time until the table fits.
// Open spans of an evicted trace leave the active index with it.
func (t *Tracer) evictLocked() {
	for len(t.traces) > t.maxTraces {
		var oldest *traceRecord
		for _, rec := range t.traces {
			if oldest == nil || rec.start.Before(oldest.start) ||
				(rec.start.Equal(oldest.start) && rec.seq < oldest.seq) {
				oldest = rec
			}
		}
		for _, node := range oldest.nodes {
			if !node.ended {
				delete(t.active, node.id)
			}
		}
		delete(t.traces, oldest.id)
		t.metrics.traceEvicted(len(t.active))
		t.logger.Debug("trace evicted",
			"trace_id", oldest.id,
			"open_spans", oldest.open,
			"max_traces", t.maxTraces,
		)
	}
}

// GetTrace returns a snapshot of a trace.
func (t *Tracer) GetTrace(traceID string) (*Trace, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.traces[traceID]
	if !ok {
		return nil, false
	}
	return rec.snapshot(), true
}

// GetAllTraces returns snapshots newest first. A limit of 0 or less
// returns every trace.
func (t *Tracer) GetAllTraces(limit int) []*Trace {
	t.mu.RLock()
	defer t.mu.RUnlock()

	recs := t.sortedLocked()
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	out := make([]*Trace, len(recs))
	for i, rec := range recs {
		out[i] = rec.snapshot()
	}
	return out
}

// sortedLocked returns trace records newest first.
func (t *Tracer) sortedLocked() []*traceRecord {
	recs := make([]*traceRecord, 0, len(t.traces))
	for _, rec := range t.traces {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].start.Equal(recs[j].start) {
			return recs[i].start.After(recs[j].start)
		}
		return recs[i].seq > recs[j].seq
	})
	return recs
}

// ActiveSpanCount returns the number of open spans across all traces.
func (t *Tracer) ActiveSpanCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.active)
}

// TraceCount returns the number of stored traces.
func (t *Tracer) TraceCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.traces)
}

func (rec *traceRecord) snapshot() *Trace {
	tr := &Trace{
		ID:                 rec.id,
		Name:               rec.name,
		StartTime:          rec.start,
		Status:             rec.status,
		RemoteParentSpanID: rec.remoteParent,
		RemoteSampled:      rec.remoteSample,
		Attributes:         rec.attrs.Clone(),
		Spans:              make([]*Span, 0, len(rec.roots)),
	}
	if tr.Attributes == nil {
		tr.Attributes = Attributes{}
	}
	if rec.ended {
		end := rec.end
		tr.EndTime = &end
		tr.Duration = end.Sub(rec.start)
	}
	for _, idx := range rec.roots {
		tr.Spans = append(tr.Spans, rec.spanSnapshot(idx))
	}
	return tr
}

func (rec *traceRecord) spanSnapshot(idx int) *Span {
	node := &rec.nodes[idx]
	s := &Span{
		ID:           node.id,
		TraceID:      rec.id,
		ParentSpanID: node.parentID,
		Name:         node.name,
		StartTime:    node.start,
		Status:       node.status,
		Attributes:   node.attrs.Clone(),
		Events:       make([]SpanEvent, len(node.events)),
		Children:     make([]*Span, 0, len(node.children)),
	}
	if s.Attributes == nil {
		s.Attributes = Attributes{}
	}
	if node.ended {
		end := node.end
		s.EndTime = &end
		s.Duration = end.Sub(node.start)
	}
	for i, ev := range node.events {
		ev.Attributes = ev.Attributes.Clone()
		s.Events[i] = ev
	}
	for _, child := range node.children {
		s.Children = append(s.Children, rec.spanSnapshot(child))
	}
	return s
}
