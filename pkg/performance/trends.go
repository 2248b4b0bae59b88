package performance

import "math"

// Trend metric names reported by GetTrends.
const (
	TrendLCP           = "lcp"
	TrendBundleSize    = "bundle_size"
	TrendBuildDuration = "build_duration"
)

// ComputeTrend compares the last value to the mean of the last window
// values, the last value included. A relative change below threshold is
// stable; otherwise the direction follows lowerIsBetter. It reports false
// when values is empty.
func ComputeTrend(metric string, values []float64, window int, threshold float64, lowerIsBetter bool) (Trend, bool) {
	if len(values) == 0 {
		return Trend{}, false
	}
	if window <= 0 || window > len(values) {
		window = len(values)
	}
	recent := values[len(values)-window:]

	var sum float64
	for _, v := range recent {
		sum += v
	}
	mean := sum / float64(len(recent))
	current := values[len(values)-1]

	tr := Trend{
		Metric:   metric,
		Current:  current,
		Baseline: mean,
		Samples:  len(recent),
		Trend:    DirectionStable,
	}
	if mean == 0 {
		return tr, true
	}

	tr.Change = (current - mean) / math.Abs(mean)
	if math.Abs(tr.Change) < threshold {
		return tr, true
	}
	if (tr.Change < 0) == lowerIsBetter {
		tr.Trend = DirectionImproving
	} else {
		tr.Trend = DirectionDegrading
	}
	return tr, true
}
