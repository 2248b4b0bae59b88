package performance

import (
	"fmt"
	"strings"
	"time"

	"mercator-hq/beacon/pkg/config"
)

const bytesPerKiB = 1024

// BudgetsFromConfig converts configured budgets, rejecting unknown types
// and non-positive limits.
func BudgetsFromConfig(cfgs []config.BudgetConfig) ([]Budget, error) {
	budgets := make([]Budget, 0, len(cfgs))
	for i, c := range cfgs {
		b := Budget{Type: BudgetType(c.Type), Limit: c.Limit}
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("budget %d: %w", i, err)
		}
		budgets = append(budgets, b)
	}
	return budgets, nil
}

// ThresholdsFromConfig converts configured vital thresholds.
func ThresholdsFromConfig(c config.ThresholdsConfig) Thresholds {
	return Thresholds{LCP: c.LCP, FID: c.FID, CLS: c.CLS, FCP: c.FCP, TTFB: c.TTFB, INP: c.INP}
}

// DefaultThresholds returns the recommended Core Web Vitals limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LCP:  config.DefaultThresholdLCP,
		FID:  config.DefaultThresholdFID,
		CLS:  config.DefaultThresholdCLS,
		FCP:  config.DefaultThresholdFCP,
		TTFB: config.DefaultThresholdTTFB,
		INP:  config.DefaultThresholdINP,
	}
}

// Validate checks the budget type and limit.
func (b Budget) Validate() error {
	switch b.Type {
	case BudgetInitial, BudgetTotal, BudgetAsync, BudgetChunks:
	default:
		return fmt.Errorf("unknown budget type %q (valid: initial, total, async, chunks)", b.Type)
	}
	if b.Limit <= 0 {
		return fmt.Errorf("budget %s limit must be positive, got %g", b.Type, b.Limit)
	}
	return nil
}

// Measure returns the value of bundle in the budget's unit.
func (b Budget) Measure(bundle BundleMetrics) float64 {
	switch b.Type {
	case BudgetInitial:
		return float64(bundle.InitialSize) / bytesPerKiB
	case BudgetTotal:
		return float64(bundle.TotalSize) / bytesPerKiB
	case BudgetAsync:
		return float64(bundle.AsyncSize) / bytesPerKiB
	case BudgetChunks:
		return float64(bundle.ChunkCount)
	default:
		return 0
	}
}

func (b Budget) unit() string {
	if b.Type == BudgetChunks {
		return ""
	}
	return " KiB"
}

// BudgetStatus is a budget evaluated against a bundle.
type BudgetStatus struct {
	Budget   Budget  `json:"budget"`
	Current  float64 `json:"current"`
	Exceeded bool    `json:"exceeded"`
}

func evaluateBudgets(budgets []Budget, bundle BundleMetrics) []BudgetStatus {
	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		v := b.Measure(bundle)
		out = append(out, BudgetStatus{Budget: b, Current: v, Exceeded: v > b.Limit})
	}
	return out
}

func budgetAlerts(budgets []Budget, bundle BundleMetrics, at time.Time) []Alert {
	var alerts []Alert
	for _, st := range evaluateBudgets(budgets, bundle) {
		if !st.Exceeded {
			continue
		}
		b := st.Budget
		alerts = append(alerts, newAlert(
			AlertBudgetViolation, SeverityError,
			"bundle_"+string(b.Type), st.Current, b.Limit,
			fmt.Sprintf("%s bundle size %.2f%s exceeds budget %.2f%s", b.Type, st.Current, b.unit(), b.Limit, b.unit()),
			at,
		))
	}
	return alerts
}

// vital pairs a measured value with its threshold.
type vital struct {
	name      string
	unit      string
	value     float64
	threshold float64
}

func vitalsOf(v WebVitals, th Thresholds) []vital {
	return []vital{
		{name: "lcp", unit: "ms", value: v.LCP, threshold: th.LCP},
		{name: "fid", unit: "ms", value: v.FID, threshold: th.FID},
		{name: "cls", unit: "", value: v.CLS, threshold: th.CLS},
		{name: "fcp", unit: "ms", value: v.FCP, threshold: th.FCP},
		{name: "ttfb", unit: "ms", value: v.TTFB, threshold: th.TTFB},
		{name: "inp", unit: "ms", value: v.INP, threshold: th.INP},
	}
}

func thresholdAlerts(v WebVitals, th Thresholds, at time.Time) []Alert {
	var alerts []Alert
	for _, vt := range vitalsOf(v, th) {
		if vt.value <= 0 || vt.threshold <= 0 || vt.value <= vt.threshold {
			continue
		}
		msg := fmt.Sprintf("%s %.2f%s exceeds threshold %.2f%s", strings.ToUpper(vt.name), vt.value, vt.unit, vt.threshold, vt.unit)
		if v.URL != "" {
			msg += " on " + v.URL
		}
		alerts = append(alerts, newAlert(AlertThresholdExceeded, SeverityWarning, vt.name, vt.value, vt.threshold, msg, at))
	}
	return alerts
}
