package metrics

import (
	"sort"
	"sync"

	"mercator-hq/beacon/pkg/config"
	"mercator-hq/beacon/pkg/telemetry/logging"
)

// Kind identifies one of the four metric primitives.
type Kind string

const (
	KindCounter   Kind = "counter"
	KindGauge     Kind = "gauge"
	KindHistogram Kind = "histogram"
	KindSummary   Kind = "summary"
)

// Registry owns named metric primitives. Names are unique across all four
// kinds: creating a metric under an existing name replaces the earlier
// one, whatever its kind.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	summaries  map[string]*Summary

	defaultBuckets   []float64
	defaultQuantiles []float64
	maxObservations  int
	logger           logging.LevelLogger
}

// Option configures a Registry.
type Option func(*Registry)

// WithDefaultBuckets sets the buckets used when CreateHistogram is given none.
func WithDefaultBuckets(b []float64) Option {
	return func(r *Registry) {
		if len(b) > 0 {
			r.defaultBuckets = append([]float64(nil), b...)
		}
	}
}

// WithDefaultQuantiles sets the quantiles used when CreateSummary is given none.
func WithDefaultQuantiles(q []float64) Option {
	return func(r *Registry) {
		if len(q) > 0 {
			r.defaultQuantiles = append([]float64(nil), q...)
		}
	}
}

// WithMaxObservations bounds the observations kept by each histogram and
// summary. Sum and count stay cumulative; summary quantiles are computed
// over the retained window. 0 keeps everything.
func WithMaxObservations(n int) Option {
	return func(r *Registry) { r.maxObservations = n }
}

// WithLogger sets the logger used for registry diagnostics.
func WithLogger(l logging.LevelLogger) Option {
	return func(r *Registry) { r.logger = logging.OrNop(l) }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		counters:         make(map[string]*Counter),
		gauges:           make(map[string]*Gauge),
		histograms:       make(map[string]*Histogram),
		summaries:        make(map[string]*Summary),
		defaultBuckets:   append([]float64(nil), config.DefaultHistogramBuckets...),
		defaultQuantiles: append([]float64(nil), config.DefaultSummaryQuantiles...),
		logger:           logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FromConfig builds a registry from the metrics configuration section.
func FromConfig(cfg config.MetricsConfig, logger logging.LevelLogger) *Registry {
	return NewRegistry(
		WithDefaultBuckets(cfg.DefaultBuckets),
		WithDefaultQuantiles(cfg.SummaryQuantiles),
		WithMaxObservations(cfg.SummaryMaxObservations),
		WithLogger(logger),
	)
}

// removeLocked drops name from every kind. Caller holds r.mu.
func (r *Registry) removeLocked(name string) bool {
	_, c := r.counters[name]
	_, g := r.gauges[name]
	_, h := r.histograms[name]
	_, s := r.summaries[name]
	delete(r.counters, name)
	delete(r.gauges, name)
	delete(r.histograms, name)
	delete(r.summaries, name)
	return c || g || h || s
}

func (r *Registry) replaceLocked(name string, kind Kind) {
	if r.removeLocked(name) {
		r.logger.Debug("metric replaced", "name", name, "kind", string(kind))
	}
}

// CreateCounter registers a new counter under name.
func (r *Registry) CreateCounter(name, help string, labels Labels) *Counter {
	c := &Counter{identity: newIdentity(name, help, labels)}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaceLocked(name, KindCounter)
	r.counters[name] = c
	return c
}

// CreateGauge registers a new gauge under name.
func (r *Registry) CreateGauge(name, help string, labels Labels) *Gauge {
	g := &Gauge{identity: newIdentity(name, help, labels)}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaceLocked(name, KindGauge)
	r.gauges[name] = g
	return g
}

// CreateHistogram registers a new histogram under name. Empty buckets
// select the registry defaults.
func (r *Registry) CreateHistogram(name, help string, buckets []float64, labels Labels) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(buckets) == 0 {
		buckets = r.defaultBuckets
	}
	h := newHistogram(newIdentity(name, help, labels), buckets, r.maxObservations)

	r.replaceLocked(name, KindHistogram)
	r.histograms[name] = h
	return h
}

// CreateSummary registers a new summary under name. Quantiles outside
// (0,1) are dropped; if none remain the registry defaults are used.
func (r *Registry) CreateSummary(name, help string, quantiles []float64, labels Labels) *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(normalizeQuantiles(quantiles)) == 0 {
		if len(quantiles) > 0 {
			r.logger.Warn("summary quantiles invalid, using defaults", "name", name, "quantiles", quantiles)
		}
		quantiles = r.defaultQuantiles
	}
	s := newSummary(newIdentity(name, help, labels), quantiles, r.maxObservations)

	r.replaceLocked(name, KindSummary)
	r.summaries[name] = s
	return s
}

// GetCounter returns the counter registered under name.
func (r *Registry) GetCounter(name string) (*Counter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.counters[name]
	return c, ok
}

// GetGauge returns the gauge registered under name.
func (r *Registry) GetGauge(name string) (*Gauge, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gauges[name]
	return g, ok
}

// GetHistogram returns the histogram registered under name.
func (r *Registry) GetHistogram(name string) (*Histogram, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.histograms[name]
	return h, ok
}

// GetSummary returns the summary registered under name.
func (r *Registry) GetSummary(name string) (*Summary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.summaries[name]
	return s, ok
}

// Counter returns the counter registered under name, creating it if absent.
// Unlike CreateCounter it never replaces an existing counter.
func (r *Registry) Counter(name, help string, labels Labels) *Counter {
	if c, ok := r.GetCounter(name); ok {
		return c
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := &Counter{identity: newIdentity(name, help, labels)}
	r.replaceLocked(name, KindCounter)
	r.counters[name] = c
	return c
}

// Gauge returns the gauge registered under name, creating it if absent.
func (r *Registry) Gauge(name, help string, labels Labels) *Gauge {
	if g, ok := r.GetGauge(name); ok {
		return g
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[name]; ok {
		return g
	}
	g := &Gauge{identity: newIdentity(name, help, labels)}
	r.replaceLocked(name, KindGauge)
	r.gauges[name] = g
	return g
}

// Histogram returns the histogram registered under name, creating it if absent.
func (r *Registry) Histogram(name, help string, buckets []float64, labels Labels) *Histogram {
	if h, ok := r.GetHistogram(name); ok {
		return h
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[name]; ok {
		return h
	}
	if len(buckets) == 0 {
		buckets = r.defaultBuckets
	}
	h := newHistogram(newIdentity(name, help, labels), buckets, r.maxObservations)
	r.replaceLocked(name, KindHistogram)
	r.histograms[name] = h
	return h
}

// Unregister removes the metric registered under name.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(name)
}

// Len returns the number of registered metrics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.counters) + len(r.gauges) + len(r.histograms) + len(r.summaries)
}

// Reset zeroes every registered metric. Registrations are kept.
func (r *Registry) Reset() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.counters {
		c.Reset()
	}
	for _, g := range r.gauges {
		g.Reset()
	}
	for _, h := range r.histograms {
		h.Reset()
	}
	for _, s := range r.summaries {
		s.Reset()
	}
}

// CounterSnapshot is a point-in-time copy of a counter.
type CounterSnapshot struct {
	Name   string  `json:"name"`
	Help   string  `json:"help"`
	Labels Labels  `json:"labels,omitempty"`
	Value  float64 `json:"value"`
}

// GaugeSnapshot is a point-in-time copy of a gauge.
type GaugeSnapshot struct {
	Name   string  `json:"name"`
	Help   string  `json:"help"`
	Labels Labels  `json:"labels,omitempty"`
	Value  float64 `json:"value"`
}

// HistogramSnapshot is a point-in-time copy of a histogram.
type HistogramSnapshot struct {
	Name         string    `json:"name"`
	Help         string    `json:"help"`
	Labels       Labels    `json:"labels,omitempty"`
	Buckets      []float64 `json:"buckets"`
	BucketCounts []uint64  `json:"bucket_counts"` // cumulative, parallel to Buckets
	Observations []float64 `json:"observations"`
	Sum          float64   `json:"sum"`
	Count        uint64    `json:"count"`
}

// SummarySnapshot is a point-in-time copy of a summary.
type SummarySnapshot struct {
	Name         string          `json:"name"`
	Help         string          `json:"help"`
	Labels       Labels          `json:"labels,omitempty"`
	Quantiles    []QuantileValue `json:"quantiles"`
	Observations []float64       `json:"observations"`
	Sum          float64         `json:"sum"`
	Count        uint64          `json:"count"`
}

// Snapshot holds copies of every registered metric, sorted by name within
// each kind.
type Snapshot struct {
	Counters   []CounterSnapshot   `json:"counters"`
	Gauges     []GaugeSnapshot     `json:"gauges"`
	Histograms []HistogramSnapshot `json:"histograms"`
	Summaries  []SummarySnapshot   `json:"summaries"`
}

// GetAllMetrics returns a snapshot of every registered metric. The
// snapshot shares no memory with the registry.
func (r *Registry) GetAllMetrics() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Counters:   make([]CounterSnapshot, 0, len(r.counters)),
		Gauges:     make([]GaugeSnapshot, 0, len(r.gauges)),
		Histograms: make([]HistogramSnapshot, 0, len(r.histograms)),
		Summaries:  make([]SummarySnapshot, 0, len(r.summaries)),
	}

	for _, name := range sortedKeys(r.counters) {
		c := r.counters[name]
		snap.Counters = append(snap.Counters, CounterSnapshot{
			Name: c.name, Help: c.help, Labels: c.Labels(), Value: c.Value(),
		})
	}
	for _, name := range sortedKeys(r.gauges) {
		g := r.gauges[name]
		snap.Gauges = append(snap.Gauges, GaugeSnapshot{
			Name: g.name, Help: g.help, Labels: g.Labels(), Value: g.Value(),
		})
	}
	for _, name := range sortedKeys(r.histograms) {
		snap.Histograms = append(snap.Histograms, r.histograms[name].snapshot())
	}
	for _, name := range sortedKeys(r.summaries) {
		snap.Summaries = append(snap.Summaries, r.summaries[name].snapshot())
	}

	return snap
}

func (h *Histogram) snapshot() HistogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	return HistogramSnapshot{
		Name:         h.name,
		Help:         h.help,
		Labels:       h.Labels(),
		Buckets:      append([]float64(nil), h.buckets...),
		BucketCounts: h.cumulativeLocked(),
		Observations: append([]float64(nil), h.observations...),
		Sum:          h.sum,
		Count:        h.count,
	}
}

func (s *Summary) snapshot() SummarySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SummarySnapshot{
		Name:         s.name,
		Help:         s.help,
		Labels:       s.Labels(),
		Quantiles:    s.quantilesLocked(),
		Observations: append([]float64(nil), s.observations...),
		Sum:          s.sum,
		Count:        s.count,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
