package metrics

import (
	"errors"
	"math"
	"sort"
	"sync"
)

// ErrNegativeIncrement is returned when a counter is asked to decrease.
var ErrNegativeIncrement = errors.New("counter cannot be decreased")

// Labels are the constant label pairs attached to a metric at creation.
type Labels map[string]string

func (l Labels) clone() Labels {
	if l == nil {
		return nil
	}
	out := make(Labels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// identity is the immutable name/help/labels triple shared by every primitive.
type identity struct {
	name   string
	help   string
	labels Labels
}

func newIdentity(name, help string, labels Labels) identity {
	return identity{name: name, help: help, labels: labels.clone()}
}

// Name returns the metric name.
func (i identity) Name() string { return i.name }

// Help returns the metric help text.
func (i identity) Help() string { return i.help }

// Labels returns a copy of the metric labels.
func (i identity) Labels() Labels { return i.labels.clone() }

// Counter is a monotonically non-decreasing value.
type Counter struct {
	identity
	mu    sync.Mutex
	value float64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.mu.Lock()
	c.value++
	c.mu.Unlock()
}

// Add increments the counter by n. A negative n leaves the counter
// unchanged and returns ErrNegativeIncrement.
func (c *Counter) Add(n float64) error {
	if n < 0 || math.IsNaN(n) {
		return ErrNegativeIncrement
	}
	c.mu.Lock()
	c.value += n
	c.mu.Unlock()
	return nil
}

// Value returns the current count.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Reset sets the counter back to zero.
func (c *Counter) Reset() {
	c.mu.Lock()
	c.value = 0
	c.mu.Unlock()
}

// Gauge is an arbitrary value that can go up and down.
type Gauge struct {
	identity
	mu    sync.Mutex
	value float64
}

// Set sets the gauge to v.
func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() { g.Add(1) }

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() { g.Add(-1) }

// Sub decrements the gauge by n.
func (g *Gauge) Sub(n float64) { g.Add(-n) }

// Add adds n to the gauge. n may be negative.
func (g *Gauge) Add(n float64) {
	g.mu.Lock()
	g.value += n
	g.mu.Unlock()
}

// Value returns the current value.
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Reset sets the gauge back to zero.
func (g *Gauge) Reset() { g.Set(0) }

// Histogram counts observations into fixed upper-bound buckets and keeps
// the observations themselves.
type Histogram struct {
	identity
	buckets []float64 // sorted, de-duplicated, immutable
	maxObs  int

	mu           sync.Mutex
	observations []float64
	counts       []uint64 // per bucket, non-cumulative
	sum          float64
	count        uint64
}

func newHistogram(id identity, buckets []float64, maxObs int) *Histogram {
	b := normalizeBuckets(buckets)
	return &Histogram{
		identity: id,
		buckets:  b,
		maxObs:   maxObs,
		counts:   make([]uint64, len(b)),
	}
}

// normalizeBuckets sorts and de-duplicates bounds and drops NaN and +Inf;
// the +Inf bucket is implicit.
func normalizeBuckets(in []float64) []float64 {
	out := make([]float64, 0, len(in))
	for _, b := range in {
		if math.IsNaN(b) || math.IsInf(b, 1) {
			continue
		}
		out = append(out, b)
	}
	sort.Float64s(out)
	uniq := out[:0]
	for i, b := range out {
		if i == 0 || b != out[i-1] {
			uniq = append(uniq, b)
		}
	}
	return uniq
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.observations = appendBounded(h.observations, v, h.maxObs)
	h.sum += v
	h.count++
	if i := sort.SearchFloat64s(h.buckets, v); i < len(h.buckets) {
		h.counts[i]++
	}
}

// Sum returns the sum of all observations.
func (h *Histogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Buckets returns a copy of the bucket upper bounds.
func (h *Histogram) Buckets() []float64 {
	return append([]float64(nil), h.buckets...)
}

// Observations returns a copy of the retained observations in arrival order.
func (h *Histogram) Observations() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]float64(nil), h.observations...)
}

// BucketCounts returns cumulative counts keyed by upper bound.
func (h *Histogram) BucketCounts() map[float64]uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[float64]uint64, len(h.buckets))
	for i, c := range h.cumulativeLocked() {
		out[h.buckets[i]] = c
	}
	return out
}

// cumulativeLocked returns cumulative counts parallel to h.buckets.
func (h *Histogram) cumulativeLocked() []uint64 {
	out := make([]uint64, len(h.buckets))
	var running uint64
	for i := range h.buckets {
		running += h.counts[i]
		out[i] = running
	}
	return out
}

// Reset clears observations, sum, and count. Buckets are kept.
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observations = nil
	h.counts = make([]uint64, len(h.buckets))
	h.sum = 0
	h.count = 0
}

// QuantileValue is a computed quantile.
type QuantileValue struct {
	Quantile float64 `json:"quantile"`
	Value    float64 `json:"value"`
}

// Summary keeps observations and recomputes every configured quantile
// exactly on each Observe.
type Summary struct {
	identity
	quantiles []float64 // sorted, each in (0,1)
	maxObs    int

	mu           sync.Mutex
	observations []float64
	values       []float64 // parallel to quantiles
	sum          float64
	count        uint64
}

func newSummary(id identity, quantiles []float64, maxObs int) *Summary {
	q := normalizeQuantiles(quantiles)
	return &Summary{
		identity:  id,
		quantiles: q,
		maxObs:    maxObs,
		values:    make([]float64, len(q)),
	}
}

// normalizeQuantiles drops values outside (0,1), sorts, and de-duplicates.
func normalizeQuantiles(in []float64) []float64 {
	out := make([]float64, 0, len(in))
	for _, q := range in {
		if q > 0 && q < 1 {
			out = append(out, q)
		}
	}
	sort.Float64s(out)
	uniq := out[:0]
	for i, q := range out {
		if i == 0 || q != out[i-1] {
			uniq = append(uniq, q)
		}
	}
	return uniq
}

// Observe records v and recomputes the quantiles.
func (s *Summary) Observe(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observations = appendBounded(s.observations, v, s.maxObs)
	s.sum += v
	s.count++

	sorted := append([]float64(nil), s.observations...)
	sort.Float64s(sorted)
	for i, q := range s.quantiles {
		s.values[i] = nearestRank(sorted, q)
	}
}

// nearestRank returns the element at index ceil(q*n)-1 of a sorted slice.
func nearestRank(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(q*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// Quantiles returns a copy of the current quantile values. Before the
// first observation every value is 0.
func (s *Summary) Quantiles() []QuantileValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantilesLocked()
}

func (s *Summary) quantilesLocked() []QuantileValue {
	out := make([]QuantileValue, len(s.quantiles))
	for i, q := range s.quantiles {
		out[i] = QuantileValue{Quantile: q, Value: s.values[i]}
	}
	return out
}

// Sum returns the sum of all observations.
func (s *Summary) Sum() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sum
}

// Count returns the number of observations.
func (s *Summary) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Observations returns a copy of the retained observations in arrival order.
func (s *Summary) Observations() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.observations...)
}

// Reset clears observations, quantiles, sum, and count.
func (s *Summary) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observations = nil
	s.values = make([]float64, len(s.quantiles))
	s.sum = 0
	s.count = 0
}

// appendBounded appends v and, when limit > 0, keeps only the newest limit values.
func appendBounded(obs []float64, v float64, limit int) []float64 {
	obs = append(obs, v)
	if limit > 0 && len(obs) > limit {
		// Shift down rather than reslice so the backing array stays bounded.
		n := copy(obs, obs[len(obs)-limit:])
		obs = obs[:n]
	}
	return obs
}
