package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mercator-hq/beacon/pkg/performance"
)

// Names under which the built-in checks are usually registered.
const (
	CheckOpenSpans         = "open_spans"
	CheckPerformanceAlerts = "performance_alerts"
	CheckTraceExport       = "trace_export"
)

// SpanCounter reports the number of spans that are started but not ended.
// *tracing.Tracer implements it.
type SpanCounter interface {
	ActiveSpanCount() int
}

// OpenSpanCheck fails when more than max spans are open at once, which
// usually means spans are started and never ended. A negative max
// disables the check.
func OpenSpanCheck(spans SpanCounter, max int) CheckFunc {
	return func(ctx context.Context) error {
		if max < 0 || spans == nil {
			return nil
		}
		if n := spans.ActiveSpanCount(); n > max {
			return fmt.Errorf("%d open spans exceeds limit %d", n, max)
		}
		return nil
	}
}

// AlertSource returns performance alerts raised at or after a time.
// *performance.Monitor implements it.
type AlertSource interface {
	GetAlertsSince(t time.Time) []performance.Alert
}

// AlertCheck fails while an error-severity performance alert raised in
// the last window is retained. A window of 0 or less disables the check.
func AlertCheck(source AlertSource, window time.Duration) CheckFunc {
	return alertCheck(source, window, time.Now)
}

func alertCheck(source AlertSource, window time.Duration, now func() time.Time) CheckFunc {
	return func(ctx context.Context) error {
		if window <= 0 || source == nil {
			return nil
		}
		var errs int
		var latest performance.Alert
		for _, a := range source.GetAlertsSince(now().Add(-window)) {
			if a.Severity == performance.SeverityError {
				errs++
				latest = a
			}
		}
		if errs > 0 {
			return fmt.Errorf("%d error alerts in the last %s, latest: %s", errs, window, latest.Message)
		}
		return nil
	}
}

// ExportFailureSource reports how many trace exports have failed.
// *tracing.Shipper implements it through ExportFailures.
type ExportFailureSource interface {
	ExportFailures() int64
}

// ExportCheck fails when trace exports failed since the previous run of
// the check.
func ExportCheck(source ExportFailureSource) CheckFunc {
	var mu sync.Mutex
	var last int64
	return func(ctx context.Context) error {
		if source == nil {
			return nil
		}
		n := source.ExportFailures()

		mu.Lock()
		prev := last
		last = n
		mu.Unlock()

		if n > prev {
			return fmt.Errorf("%d trace exports failed since the last check", n-prev)
		}
		return nil
	}
}
