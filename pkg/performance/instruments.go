package performance

import "mercator-hq/beacon/pkg/telemetry/metrics"

var (
	vitalBuckets = []float64{50, 100, 200, 500, 800, 1000, 1800, 2500, 4000, 6000, 10000}
	clsBuckets   = []float64{0.01, 0.025, 0.05, 0.1, 0.15, 0.25, 0.5, 1}
	buildBuckets = []float64{1000, 5000, 10000, 30000, 60000, 120000, 300000, 600000}
)

// instruments mirrors recorded samples into the metrics registry.
type instruments struct {
	vitals        map[string]*metrics.Histogram
	bundleTotal   *metrics.Gauge
	bundleInitial *metrics.Gauge
	bundleAsync   *metrics.Gauge
	bundleChunks  *metrics.Gauge
	buildDuration *metrics.Histogram
	buildCacheHit *metrics.Gauge
	builds        *metrics.Counter
	buildFailures *metrics.Counter
	alerts        *metrics.Counter
}

func newInstruments(reg *metrics.Registry, namespace string) *instruments {
	name := func(s string) string {
		if namespace == "" {
			return s
		}
		return namespace + "_" + s
	}
	vital := func(key, help string) *metrics.Histogram {
		return reg.Histogram(name("web_vitals_"+key+"_milliseconds"), help, vitalBuckets, nil)
	}
	return &instruments{
		vitals: map[string]*metrics.Histogram{
			"lcp":  vital("lcp", "Largest Contentful Paint."),
			"fid":  vital("fid", "First Input Delay."),
			"fcp":  vital("fcp", "First Contentful Paint."),
			"ttfb": vital("ttfb", "Time to First Byte."),
			"inp":  vital("inp", "Interaction to Next Paint."),
			"cls":  reg.Histogram(name("web_vitals_cls"), "Cumulative Layout Shift.", clsBuckets, nil),
		},
		bundleTotal:   reg.Gauge(name("bundle_total_bytes"), "Total size of the latest bundle.", nil),
		bundleInitial: reg.Gauge(name("bundle_initial_bytes"), "Initial size of the latest bundle.", nil),
		bundleAsync:   reg.Gauge(name("bundle_async_bytes"), "Async size of the latest bundle.", nil),
		bundleChunks:  reg.Gauge(name("bundle_chunks"), "Chunk count of the latest bundle.", nil),
		buildDuration: reg.Histogram(name("build_duration_milliseconds"), "Build durations.", buildBuckets, nil),
		buildCacheHit: reg.Gauge(name("build_cache_hit_ratio"), "Cache hit rate of the latest build.", nil),
		builds:        reg.Counter(name("builds_total"), "Builds recorded.", nil),
		buildFailures: reg.Counter(name("build_failures_total"), "Failed builds recorded.", nil),
		alerts:        reg.Counter(name("performance_alerts_total"), "Performance alerts raised.", nil),
	}
}

func (in *instruments) observeVitals(v WebVitals) {
	for key, val := range map[string]float64{
		"lcp": v.LCP, "fid": v.FID, "cls": v.CLS,
		"fcp": v.FCP, "ttfb": v.TTFB, "inp": v.INP,
	} {
		if val > 0 {
			in.vitals[key].Observe(val)
		}
	}
}

func (in *instruments) observeBundle(b BundleMetrics) {
	in.bundleTotal.Set(float64(b.TotalSize))
	in.bundleInitial.Set(float64(b.InitialSize))
	in.bundleAsync.Set(float64(b.AsyncSize))
	in.bundleChunks.Set(float64(b.ChunkCount))
}

func (in *instruments) observeBuild(b BuildMetrics) {
	in.builds.Inc()
	if !b.Success {
		in.buildFailures.Inc()
		return
	}
	in.buildDuration.Observe(b.Duration)
	in.buildCacheHit.Set(b.CacheHitRate)
}

func (in *instruments) alertRaised() { in.alerts.Inc() }
