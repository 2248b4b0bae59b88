package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes a Registry to a prometheus.Registerer. Metrics can be
// created and replaced at any time, so the collector is unchecked: Describe
// sends nothing and every scrape reflects the registry as it is.
type Collector struct {
	registry *Registry
}

// Collector returns a prometheus.Collector backed by r.
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(registry.Collector())
func (r *Registry) Collector() *Collector {
	return &Collector{registry: r}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.registry.GetAllMetrics()

	for _, m := range snap.Counters {
		desc := newDesc(m.Name, m.Help, m.Labels)
		ch <- constMetric(desc, prometheus.CounterValue, m.Value)
	}
	for _, m := range snap.Gauges {
		desc := newDesc(m.Name, m.Help, m.Labels)
		ch <- constMetric(desc, prometheus.GaugeValue, m.Value)
	}
	for _, m := range snap.Histograms {
		desc := newDesc(m.Name, m.Help, m.Labels)
		buckets := make(map[float64]uint64, len(m.Buckets))
		for i, ub := range m.Buckets {
			buckets[ub] = m.BucketCounts[i]
		}
		metric, err := prometheus.NewConstHistogram(desc, m.Count, m.Sum, buckets)
		if err != nil {
			metric = prometheus.NewInvalidMetric(desc, err)
		}
		ch <- metric
	}
	for _, m := range snap.Summaries {
		desc := newDesc(m.Name, m.Help, m.Labels)
		quantiles := make(map[float64]float64, len(m.Quantiles))
		for _, q := range m.Quantiles {
			quantiles[q.Quantile] = q.Value
		}
		metric, err := prometheus.NewConstSummary(desc, m.Count, m.Sum, quantiles)
		if err != nil {
			metric = prometheus.NewInvalidMetric(desc, err)
		}
		ch <- metric
	}
}

func newDesc(name, help string, labels Labels) *prometheus.Desc {
	return prometheus.NewDesc(name, help, nil, prometheus.Labels(labels))
}

func constMetric(desc *prometheus.Desc, vt prometheus.ValueType, v float64) prometheus.Metric {
	m, err := prometheus.NewConstMetric(desc, vt, v)
	if err != nil {
		return prometheus.NewInvalidMetric(desc, fmt.Errorf("metric %s: %w", desc.String(), err))
	}
	return m
}
