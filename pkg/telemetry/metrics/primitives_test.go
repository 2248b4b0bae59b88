package metrics

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
)

func TestCounter(t *testing.T) {
	r := NewRegistry()
	c := r.CreateCounter("jobs_total", "Jobs.", nil)

	c.Inc()
	if err := c.Add(2.5); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := c.Value(); got != 3.5 {
		t.Errorf("Value() = %v, want 3.5", got)
	}

	if err := c.Add(-1); !errors.Is(err, ErrNegativeIncrement) {
		t.Errorf("Add(-1) error = %v, want ErrNegativeIncrement", err)
	}
	if got := c.Value(); got != 3.5 {
		t.Errorf("Value() after rejected Add = %v, want 3.5", got)
	}

	c.Reset()
	if got := c.Value(); got != 0 {
		t.Errorf("Value() after Reset = %v, want 0", got)
	}
}

func TestCounter_Concurrent(t *testing.T) {
	c := NewRegistry().CreateCounter("c", "", nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()

	if got := c.Value(); got != 5000 {
		t.Errorf("Value() = %v, want 5000", got)
	}
}

func TestGauge(t *testing.T) {
	g := NewRegistry().CreateGauge("queue_depth", "Depth.", nil)

	g.Set(10)
	g.Inc()
	g.Dec()
	g.Dec()
	g.Add(5)
	g.Sub(2.5)

	if got := g.Value(); got != 11.5 {
		t.Errorf("Value() = %v, want 11.5", got)
	}

	g.Set(-3)
	if got := g.Value(); got != -3 {
		t.Errorf("Value() = %v, want -3", got)
	}

	g.Reset()
	if got := g.Value(); got != 0 {
		t.Errorf("Value() after Reset = %v, want 0", got)
	}
}

func TestHistogram(t *testing.T) {
	h := NewRegistry().CreateHistogram("size_bytes", "Sizes.", []float64{10, 1, 5, 5, math.Inf(1)}, nil)

	if got, want := h.Buckets(), []float64{1, 5, 10}; !reflect.DeepEqual(got, want) {
		t.Errorf("Buckets() = %v, want %v", got, want)
	}

	for _, v := range []float64{0.5, 1, 3, 7, 50} {
		h.Observe(v)
	}

	if got := h.Count(); got != 5 {
		t.Errorf("Count() = %d, want 5", got)
	}
	if got := h.Sum(); got != 61.5 {
		t.Errorf("Sum() = %v, want 61.5", got)
	}
	if got, want := h.Observations(), []float64{0.5, 1, 3, 7, 50}; !reflect.DeepEqual(got, want) {
		t.Errorf("Observations() = %v, want %v", got, want)
	}

	wantCounts := map[float64]uint64{1: 2, 5: 3, 10: 4}
	if got := h.BucketCounts(); !reflect.DeepEqual(got, wantCounts) {
		t.Errorf("BucketCounts() = %v, want %v", got, wantCounts)
	}

	obs := h.Observations()
	obs[0] = 999
	if h.Observations()[0] == 999 {
		t.Error("Observations() returned internal slice")
	}

	h.Reset()
	if h.Count() != 0 || h.Sum() != 0 || len(h.Observations()) != 0 {
		t.Error("Reset() did not clear observations")
	}
	if len(h.Buckets()) != 3 {
		t.Error("Reset() changed buckets")
	}
}

func TestHistogram_DefaultBuckets(t *testing.T) {
	r := NewRegistry(WithDefaultBuckets([]float64{1, 2}))
	h := r.CreateHistogram("h", "", nil, nil)
	if got := h.Buckets(); !reflect.DeepEqual(got, []float64{1, 2}) {
		t.Errorf("Buckets() = %v, want registry default", got)
	}
}

func TestSummary_ExactQuantiles(t *testing.T) {
	s := NewRegistry().CreateSummary("latency", "Latency.", []float64{0.5, 0.9, 0.99}, nil)

	for i := 1; i <= 100; i++ {
		s.Observe(float64(i))
	}

	want := []QuantileValue{{0.5, 50}, {0.9, 90}, {0.99, 99}}
	if got := s.Quantiles(); !reflect.DeepEqual(got, want) {
		t.Errorf("Quantiles() = %v, want %v", got, want)
	}
	if s.Count() != 100 || s.Sum() != 5050 {
		t.Errorf("Count() = %d, Sum() = %v", s.Count(), s.Sum())
	}
}

func TestSummary_RecomputedOnEveryObserve(t *testing.T) {
	s := NewRegistry().CreateSummary("s", "", []float64{0.5}, nil)

	steps := []struct {
		observe float64
		median  float64
	}{
		{10, 10},
		{1, 1},   // [1 10] -> ceil(1)-1 = 0
		{5, 5},   // [1 5 10]
		{100, 5}, // [1 5 10 100] -> index 1
		{7, 7},   // [1 5 7 10 100]
	}
	for i, step := range steps {
		s.Observe(step.observe)
		if got := s.Quantiles()[0].Value; got != step.median {
			t.Errorf("step %d: median = %v, want %v", i, got, step.median)
		}
	}
}

func TestSummary_QuantileValidation(t *testing.T) {
	r := NewRegistry()

	s := r.CreateSummary("s", "", []float64{0, 0.5, 1, 1.5, 0.5, -0.2}, nil)
	if got := s.Quantiles(); len(got) != 1 || got[0].Quantile != 0.5 {
		t.Errorf("Quantiles() = %v, want only 0.5", got)
	}

	d := r.CreateSummary("d", "", []float64{2, 3}, nil)
	if got := d.Quantiles(); len(got) != 3 {
		t.Errorf("Quantiles() = %v, want defaults", got)
	}
}

func TestSummary_MaxObservations(t *testing.T) {
	s := NewRegistry(WithMaxObservations(3)).CreateSummary("s", "", []float64{0.5}, nil)

	for _, v := range []float64{100, 200, 1, 2, 3} {
		s.Observe(v)
	}

	if got := s.Observations(); !reflect.DeepEqual(got, []float64{1, 2, 3}) {
		t.Errorf("Observations() = %v, want newest three", got)
	}
	if got := s.Quantiles()[0].Value; got != 2 {
		t.Errorf("median = %v, want 2", got)
	}
	if s.Count() != 5 || s.Sum() != 306 {
		t.Errorf("Count() = %d, Sum() = %v; want cumulative 5, 306", s.Count(), s.Sum())
	}
}

func TestNearestRank(t *testing.T) {
	tests := []struct {
		sorted []float64
		q      float64
		want   float64
	}{
		{nil, 0.5, 0},
		{[]float64{4}, 0.99, 4},
		{[]float64{1, 2}, 0.5, 1},
		{[]float64{1, 2}, 0.51, 2},
		{[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9},
		{[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.95, 10},
	}
	for _, tt := range tests {
		if got := nearestRank(tt.sorted, tt.q); got != tt.want {
			t.Errorf("nearestRank(%v, %v) = %v, want %v", tt.sorted, tt.q, got, tt.want)
		}
	}
}

func TestLabels_Immutable(t *testing.T) {
	labels := Labels{"env": "prod"}
	c := NewRegistry().CreateCounter("c", "", labels)

	labels["env"] = "dev"
	if got := c.Labels()["env"]; got != "prod" {
		t.Errorf("Labels()[env] = %q, want prod", got)
	}

	c.Labels()["env"] = "test"
	if got := c.Labels()["env"]; got != "prod" {
		t.Errorf("Labels() returned internal map")
	}
}
