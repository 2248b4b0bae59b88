package performance

import (
	"math"
	"testing"
)

func TestComputeTrend(t *testing.T) {
	tests := []struct {
		name          string
		values        []float64
		window        int
		lowerIsBetter bool
		wantOK        bool
		want          Direction
		wantBaseline  float64
		wantSamples   int
	}{
		{name: "no samples", values: nil, window: 20, wantOK: false},
		{name: "single sample is stable", values: []float64{1200}, window: 20, lowerIsBetter: true, wantOK: true, want: DirectionStable, wantBaseline: 1200, wantSamples: 1},
		{name: "small change is stable", values: []float64{100, 100, 100, 104}, window: 20, lowerIsBetter: true, wantOK: true, want: DirectionStable, wantBaseline: 101, wantSamples: 4},
		{name: "rise is degrading when lower is better", values: []float64{100, 100, 100, 200}, window: 20, lowerIsBetter: true, wantOK: true, want: DirectionDegrading, wantBaseline: 125, wantSamples: 4},
		{name: "drop is improving when lower is better", values: []float64{100, 100, 100, 20}, window: 20, lowerIsBetter: true, wantOK: true, want: DirectionImproving, wantBaseline: 80, wantSamples: 4},
		{name: "rise is improving when higher is better", values: []float64{0.5, 0.5, 0.5, 0.9}, window: 20, lowerIsBetter: false, wantOK: true, want: DirectionImproving, wantBaseline: 0.6, wantSamples: 4},
		{name: "window limits the baseline", values: []float64{1000, 1000, 10, 10, 10}, window: 3, lowerIsBetter: true, wantOK: true, want: DirectionStable, wantBaseline: 10, wantSamples: 3},
		{name: "zero baseline is stable", values: []float64{0, 0, 0}, window: 20, lowerIsBetter: true, wantOK: true, want: DirectionStable, wantBaseline: 0, wantSamples: 3},
		{name: "non-positive window uses everything", values: []float64{10, 20, 30}, window: 0, lowerIsBetter: true, wantOK: true, want: DirectionDegrading, wantBaseline: 20, wantSamples: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, ok := ComputeTrend("m", tt.values, tt.window, 0.05, tt.lowerIsBetter)
			if ok != tt.wantOK {
				t.Fatalf("ComputeTrend() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if tr.Trend != tt.want {
				t.Errorf("Trend = %s, want %s (change %.3f)", tr.Trend, tt.want, tr.Change)
			}
			if math.Abs(tr.Baseline-tt.wantBaseline) > 1e-9 {
				t.Errorf("Baseline = %v, want %v", tr.Baseline, tt.wantBaseline)
			}
			if tr.Samples != tt.wantSamples {
				t.Errorf("Samples = %d, want %d", tr.Samples, tt.wantSamples)
			}
			if tr.Current != tt.values[len(tt.values)-1] {
				t.Errorf("Current = %v, want the last value", tr.Current)
			}
		})
	}
}
