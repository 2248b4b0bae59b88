package performance

import (
	"fmt"
	"sync"
	"time"

	"mercator-hq/beacon/pkg/config"
	"mercator-hq/beacon/pkg/telemetry/logging"
	"mercator-hq/beacon/pkg/telemetry/metrics"
)

// Monitor records web vitals, bundle and build samples, checks them
// against thresholds, budgets and the build baseline, and keeps the
// resulting alerts and a bounded measurement history.
type Monitor struct {
	mu         sync.RWMutex
	budgets    []Budget
	thresholds Thresholds
	history    []Measurement
	alerts     *alertRing

	historySize      int
	regressionFactor float64
	regressionWindow int
	trendWindow      int
	stableThreshold  float64

	now       func() time.Time
	logger    logging.LevelLogger
	registry  *metrics.Registry
	namespace string
	inst      *instruments
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger used to report alerts.
func WithLogger(l logging.LevelLogger) Option {
	return func(m *Monitor) { m.logger = logging.OrNop(l) }
}

// WithBudgets sets the bundle budgets.
func WithBudgets(b ...Budget) Option {
	return func(m *Monitor) { m.budgets = append([]Budget(nil), b...) }
}

// WithThresholds sets the vital thresholds.
func WithThresholds(th Thresholds) Option {
	return func(m *Monitor) { m.thresholds = th }
}

// WithHistorySize bounds the measurement history.
func WithHistorySize(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.historySize = n
		}
	}
}

// WithMaxAlerts bounds the alert ring.
func WithMaxAlerts(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.alerts = newAlertRing(n)
		}
	}
}

// WithRegression sets the build regression factor and the number of
// successful builds averaged into the baseline.
func WithRegression(factor float64, window int) Option {
	return func(m *Monitor) {
		if factor > 0 {
			m.regressionFactor = factor
		}
		if window > 0 {
			m.regressionWindow = window
		}
	}
}

// WithTrend sets the trend window and the relative change below which a
// trend is stable.
func WithTrend(window int, stableThreshold float64) Option {
	return func(m *Monitor) {
		if window > 0 {
			m.trendWindow = window
		}
		if stableThreshold > 0 {
			m.stableThreshold = stableThreshold
		}
	}
}

// WithClock overrides the time source used for sample and alert times.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// WithNamespace prefixes the metric names the monitor registers.
func WithNamespace(ns string) Option {
	return func(m *Monitor) { m.namespace = ns }
}

// NewMonitor creates a monitor that records samples into registry. A nil
// registry gets a private one.
func NewMonitor(registry *metrics.Registry, opts ...Option) *Monitor {
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	m := &Monitor{
		thresholds:       DefaultThresholds(),
		alerts:           newAlertRing(config.DefaultPerformanceMaxAlerts),
		historySize:      config.DefaultPerformanceHistorySize,
		regressionFactor: config.DefaultPerformanceRegressionFactor,
		regressionWindow: config.DefaultPerformanceRegressionWindow,
		trendWindow:      config.DefaultPerformanceTrendWindow,
		stableThreshold:  config.DefaultPerformanceStableThreshold,
		now:              time.Now,
		logger:           logging.Nop(),
		registry:         registry,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.inst = newInstruments(registry, m.namespace)
	return m
}

// FromConfig creates a monitor from the performance configuration.
func FromConfig(cfg config.PerformanceConfig, registry *metrics.Registry, namespace string, logger logging.LevelLogger) (*Monitor, error) {
	budgets, err := BudgetsFromConfig(cfg.Budgets)
	if err != nil {
		return nil, err
	}
	return NewMonitor(registry,
		WithNamespace(namespace),
		WithLogger(logger),
		WithBudgets(budgets...),
		WithThresholds(ThresholdsFromConfig(cfg.Thresholds)),
		WithHistorySize(cfg.HistorySize),
		WithMaxAlerts(cfg.MaxAlerts),
		WithRegression(cfg.RegressionFactor, cfg.RegressionWindow),
		WithTrend(cfg.TrendWindow, cfg.StableThreshold),
	), nil
}

// ApplyConfig swaps budgets, thresholds and evaluation parameters. The
// history and alerts are kept; the alert ring shrinks if needed.
func (m *Monitor) ApplyConfig(cfg config.PerformanceConfig) error {
	budgets, err := BudgetsFromConfig(cfg.Budgets)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets = budgets
	m.thresholds = ThresholdsFromConfig(cfg.Thresholds)
	if cfg.HistorySize > 0 {
		m.historySize = cfg.HistorySize
		m.trimHistoryLocked()
	}
	if cfg.MaxAlerts > 0 {
		m.alerts.resize(cfg.MaxAlerts)
	}
	if cfg.RegressionFactor > 0 {
		m.regressionFactor = cfg.RegressionFactor
	}
	if cfg.RegressionWindow > 0 {
		m.regressionWindow = cfg.RegressionWindow
	}
	if cfg.TrendWindow > 0 {
		m.trendWindow = cfg.TrendWindow
	}
	if cfg.StableThreshold > 0 {
		m.stableThreshold = cfg.StableThreshold
	}
	m.logger.Info("performance configuration applied",
		"budgets", len(budgets),
		"history_size", m.historySize,
	)
	return nil
}

// SetBudgets replaces the bundle budgets.
func (m *Monitor) SetBudgets(budgets []Budget) error {
	for _, b := range budgets {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets = append([]Budget(nil), budgets...)
	return nil
}

// Budgets returns a copy of the bundle budgets.
func (m *Monitor) Budgets() []Budget {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Budget(nil), m.budgets...)
}

// SetThresholds replaces the vital thresholds.
func (m *Monitor) SetThresholds(th Thresholds) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds = th
}

// Thresholds returns the vital thresholds.
func (m *Monitor) Thresholds() Thresholds {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.thresholds
}

// RecordWebVitals records a vitals sample and returns the alerts it
// raised. Vitals above their threshold raise threshold_exceeded warnings.
func (m *Monitor) RecordWebVitals(v WebVitals) []Alert {
	if v.Timestamp.IsZero() {
		v.Timestamp = m.now()
	}
	m.inst.observeVitals(v)

	m.mu.Lock()
	alerts := thresholdAlerts(v, m.thresholds, v.Timestamp)
	m.appendLocked(Measurement{Kind: KindVitals, Timestamp: v.Timestamp, Vitals: &v}, alerts)
	m.mu.Unlock()

	m.report(alerts)
	return alerts
}

// RecordBundle records a bundle sample and returns the alerts it raised.
// Every exceeded budget raises a budget_violation error.
func (m *Monitor) RecordBundle(b BundleMetrics) []Alert {
	if b.Timestamp.IsZero() {
		b.Timestamp = m.now()
	}
	m.inst.observeBundle(b)

	m.mu.Lock()
	alerts := budgetAlerts(m.budgets, b, b.Timestamp)
	m.appendLocked(Measurement{Kind: KindBundle, Timestamp: b.Timestamp, Bundle: &b}, alerts)
	m.mu.Unlock()

	m.report(alerts)
	return alerts
}

// RecordBuild records a build sample and returns the alerts it raised. A
// failed build raises a build_failure error. A successful build slower
// than the regression factor times the mean of the previous successful
// builds raises a regression warning.
func (m *Monitor) RecordBuild(b BuildMetrics) []Alert {
	if b.Timestamp.IsZero() {
		b.Timestamp = m.now()
	}
	m.inst.observeBuild(b)

	m.mu.Lock()
	var alerts []Alert
	if !b.Success {
		alerts = append(alerts, newAlert(AlertBuildFailure, SeverityError, "build", b.Duration, 0,
			fmt.Sprintf("build failed after %.0fms", b.Duration), b.Timestamp))
	} else if baseline, n := m.buildBaselineLocked(); n > 0 {
		limit := m.regressionFactor * baseline
		if b.Duration > limit {
			alerts = append(alerts, newAlert(AlertRegression, SeverityWarning, "build_duration", b.Duration, limit,
				fmt.Sprintf("build took %.0fms, %.2fx the %.0fms mean of the last %d successful builds",
					b.Duration, b.Duration/baseline, baseline, n),
				b.Timestamp))
		}
	}
	m.appendLocked(Measurement{Kind: KindBuild, Timestamp: b.Timestamp, Build: &b}, alerts)
	m.mu.Unlock()

	m.report(alerts)
	return alerts
}

// buildBaselineLocked returns the mean duration of the most recent
// successful builds in history and how many were averaged.
func (m *Monitor) buildBaselineLocked() (float64, int) {
	var sum float64
	n := 0
	for i := len(m.history) - 1; i >= 0 && n < m.regressionWindow; i-- {
		h := m.history[i]
		if h.Kind != KindBuild || !h.Build.Success {
			continue
		}
		sum += h.Build.Duration
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

func (m *Monitor) appendLocked(meas Measurement, alerts []Alert) {
	m.history = append(m.history, meas)
	m.trimHistoryLocked()
	for _, a := range alerts {
		m.alerts.add(a)
	}
}

func (m *Monitor) trimHistoryLocked() {
	if over := len(m.history) - m.historySize; over > 0 {
		m.history = append(m.history[:0:0], m.history[over:]...)
	}
}

func (m *Monitor) report(alerts []Alert) {
	for _, a := range alerts {
		m.inst.alertRaised()
		args := []any{
			"alert_id", a.ID,
			"type", a.Type,
			"metric", a.Metric,
			"value", a.Value,
			"threshold", a.Threshold,
		}
		if a.Severity == SeverityError {
			m.logger.Error(a.Message, args...)
		} else {
			m.logger.Warn(a.Message, args...)
		}
	}
}

// GetAlerts returns the retained alerts, oldest first.
func (m *Monitor) GetAlerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alerts.all()
}

// GetAlertsSince returns the retained alerts raised at or after t.
func (m *Monitor) GetAlertsSince(t time.Time) []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alerts.since(t)
}

// ClearAlerts drops every retained alert.
func (m *Monitor) ClearAlerts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts.clear()
}

// GetHistory returns up to limit of the most recent measurements, oldest
// first. A limit of 0 or less returns the whole history.
func (m *Monitor) GetHistory(limit int) []Measurement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := m.history
	if limit > 0 && limit < len(h) {
		h = h[len(h)-limit:]
	}
	return append([]Measurement(nil), h...)
}

// GetTrends computes trends for LCP, total bundle size and successful
// build duration. Metrics without samples are omitted.
func (m *Monitor) GetTrends() []Trend {
	m.mu.RLock()
	var lcp, bundle, build []float64
	for _, h := range m.history {
		switch h.Kind {
		case KindVitals:
			if h.Vitals.LCP > 0 {
				lcp = append(lcp, h.Vitals.LCP)
			}
		case KindBundle:
			bundle = append(bundle, float64(h.Bundle.TotalSize))
		case KindBuild:
			if h.Build.Success {
				build = append(build, h.Build.Duration)
			}
		}
	}
	window, threshold := m.trendWindow, m.stableThreshold
	m.mu.RUnlock()

	inputs := []struct {
		metric string
		values []float64
	}{
		{TrendLCP, lcp},
		{TrendBundleSize, bundle},
		{TrendBuildDuration, build},
	}
	var trends []Trend
	for _, in := range inputs {
		if tr, ok := ComputeTrend(in.metric, in.values, window, threshold, true); ok {
			trends = append(trends, tr)
		}
	}
	return trends
}
