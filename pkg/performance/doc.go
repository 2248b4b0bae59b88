// Package performance monitors front-end performance: Core Web Vitals,
// bundle sizes and build runs.
//
// A Monitor mirrors every sample into a metrics.Registry, checks it and
// returns the alerts it raised:
//
//	mon := performance.NewMonitor(reg,
//		performance.WithBudgets(performance.Budget{Type: performance.BudgetInitial, Limit: 200}),
//	)
//	alerts := mon.RecordBundle(performance.BundleMetrics{InitialSize: 250 * 1024})
//	// alerts[0].Type == performance.AlertBudgetViolation
//
// Vitals above their threshold raise threshold_exceeded warnings. Bundles
// over a budget raise budget_violation errors; size budgets are KiB and
// the chunk budget is a count. Failed builds raise build_failure errors,
// and a successful build slower than 1.5 times the mean of the previous
// ten successful builds raises a regression warning.
//
// The monitor keeps the latest 1000 measurements and the latest 100
// alerts. GetTrends compares the newest LCP, bundle size and build
// duration to the mean of their last 20 samples, treating a change under
// 5% as stable. A Scheduler logs a Report on a cron schedule.
package performance
