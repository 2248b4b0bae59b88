package performance

import "time"

// Report summarises the monitor state at one point in time.
type Report struct {
	GeneratedAt time.Time      `json:"generatedAt"`
	Samples     SampleCounts   `json:"samples"`
	Alerts      AlertSummary   `json:"alerts"`
	Trends      []Trend        `json:"trends"`
	Budgets     []BudgetStatus `json:"budgets,omitempty"`
	Vitals      *WebVitals     `json:"latestVitals,omitempty"`
	Bundle      *BundleMetrics `json:"latestBundle,omitempty"`
	Build       *BuildMetrics  `json:"latestBuild,omitempty"`
}

// SampleCounts counts the measurements in history by kind.
type SampleCounts struct {
	Vitals int `json:"vitals"`
	Bundle int `json:"bundle"`
	Build  int `json:"build"`
}

// AlertSummary counts the retained alerts.
type AlertSummary struct {
	Total      int               `json:"total"`
	BySeverity map[Severity]int  `json:"bySeverity"`
	ByType     map[AlertType]int `json:"byType"`
}

// Report builds a summary of the history, retained alerts, trends and the
// budgets evaluated against the latest bundle.
func (m *Monitor) Report() Report {
	trends := m.GetTrends()

	m.mu.RLock()
	defer m.mu.RUnlock()

	r := Report{
		GeneratedAt: m.now(),
		Trends:      trends,
		Alerts: AlertSummary{
			BySeverity: make(map[Severity]int),
			ByType:     make(map[AlertType]int),
		},
	}
	for _, h := range m.history {
		switch h.Kind {
		case KindVitals:
			r.Samples.Vitals++
			v := *h.Vitals
			r.Vitals = &v
		case KindBundle:
			r.Samples.Bundle++
			b := *h.Bundle
			r.Bundle = &b
		case KindBuild:
			r.Samples.Build++
			b := *h.Build
			r.Build = &b
		}
	}
	for _, a := range m.alerts.alerts {
		r.Alerts.Total++
		r.Alerts.BySeverity[a.Severity]++
		r.Alerts.ByType[a.Type]++
	}
	if r.Bundle != nil {
		r.Budgets = evaluateBudgets(m.budgets, *r.Bundle)
	}
	return r
}
