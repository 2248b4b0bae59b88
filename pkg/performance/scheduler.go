package performance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/beacon/pkg/telemetry/logging"
)

// ScheduleOff disables scheduled reports.
const ScheduleOff = "off"

// Scheduler logs a monitor Report on a cron schedule.
type Scheduler struct {
	monitor  *Monitor
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   logging.LevelLogger
	running  bool

	hookMu   sync.Mutex
	onReport func(Report)
}

// NewScheduler creates a report scheduler for monitor. An empty or "off"
// schedule makes Start a no-op.
func NewScheduler(monitor *Monitor, schedule string, logger logging.LevelLogger) *Scheduler {
	return &Scheduler{
		monitor:  monitor,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logging.OrNop(logger),
	}
}

// OnReport registers fn to receive every report after it is logged.
func (s *Scheduler) OnReport(fn func(Report)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.onReport = fn
}

// Start begins the scheduled reports using a standard five-field cron
// expression, for example:
//   - "*/15 * * * *" - every 15 minutes
//   - "0 * * * *"    - hourly
//
// The scheduler stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" || s.schedule == ScheduleOff {
		s.logger.Info("report schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce() }); err != nil {
		return fmt.Errorf("failed to schedule performance report: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("performance report scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunOnce builds, logs and delivers one report.
func (s *Scheduler) RunOnce() Report {
	r := s.monitor.Report()

	s.logger.Info("performance report",
		"vitals_samples", r.Samples.Vitals,
		"bundle_samples", r.Samples.Bundle,
		"build_samples", r.Samples.Build,
		"alerts", r.Alerts.Total,
		"alerts_error", r.Alerts.BySeverity[SeverityError],
		"alerts_warning", r.Alerts.BySeverity[SeverityWarning],
	)
	for _, tr := range r.Trends {
		if tr.Trend == DirectionDegrading {
			s.logger.Warn("performance trend degrading",
				"metric", tr.Metric,
				"current", tr.Current,
				"baseline", tr.Baseline,
				"change", tr.Change,
			)
		}
	}

	s.hookMu.Lock()
	fn := s.onReport
	s.hookMu.Unlock()
	if fn != nil {
		fn(r)
	}
	return r
}

// Stop stops the scheduler and waits for a running report to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("performance report scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled report time, or nil when no report
// is scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
