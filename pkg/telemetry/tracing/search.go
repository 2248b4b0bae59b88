package tracing

import (
	"strings"
	"time"
)

// TraceQuery selects traces. Zero-valued fields do not filter.
type TraceQuery struct {
	// Name matches traces whose name contains it, case-insensitively.
	Name string

	Status Status

	// MinDuration and MaxDuration bound the duration of ended traces.
	// Pending traces never match a duration bound.
	MinDuration time.Duration
	MaxDuration time.Duration

	// StartedAfter and StartedBefore bound the trace start time, inclusive.
	StartedAfter  time.Time
	StartedBefore time.Time

	// Limit caps the number of results. 0 returns every match.
	Limit int
}

func (q TraceQuery) matches(rec *traceRecord) bool {
	if q.Name != "" && !strings.Contains(strings.ToLower(rec.name), strings.ToLower(q.Name)) {
		return false
	}
	if q.Status != "" && rec.status != q.Status {
		return false
	}
	if q.MinDuration > 0 || q.MaxDuration > 0 {
		if !rec.ended {
			return false
		}
		d := rec.end.Sub(rec.start)
		if q.MinDuration > 0 && d < q.MinDuration {
			return false
		}
		if q.MaxDuration > 0 && d > q.MaxDuration {
			return false
		}
	}
	if !q.StartedAfter.IsZero() && rec.start.Before(q.StartedAfter) {
		return false
	}
	if !q.StartedBefore.IsZero() && rec.start.After(q.StartedBefore) {
		return false
	}
	return true
}

// SearchTraces returns snapshots of the traces matching q, newest first.
func (t *Tracer) SearchTraces(q TraceQuery) []*Trace {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*Trace
	for _, rec := range t.sortedLocked() {
		if !q.matches(rec) {
			continue
		}
		out = append(out, rec.snapshot())
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}
