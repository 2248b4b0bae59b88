package performance

import (
	"time"

	"github.com/google/uuid"
)

// alertRing keeps the most recent alerts, oldest first. It is not safe
// for concurrent use; Monitor guards it.
type alertRing struct {
	limit  int
	alerts []Alert
}

func newAlertRing(limit int) *alertRing {
	return &alertRing{limit: limit}
}

func (r *alertRing) add(a Alert) {
	if r.limit <= 0 {
		return
	}
	if len(r.alerts) >= r.limit {
		n := copy(r.alerts, r.alerts[len(r.alerts)-r.limit+1:])
		r.alerts = r.alerts[:n]
	}
	r.alerts = append(r.alerts, a)
}

func (r *alertRing) resize(limit int) {
	r.limit = limit
	if len(r.alerts) > limit {
		r.alerts = append([]Alert(nil), r.alerts[len(r.alerts)-limit:]...)
	}
}

func (r *alertRing) all() []Alert {
	return append([]Alert(nil), r.alerts...)
}

func (r *alertRing) since(t time.Time) []Alert {
	var out []Alert
	for _, a := range r.alerts {
		if !a.Timestamp.Before(t) {
			out = append(out, a)
		}
	}
	return out
}

func (r *alertRing) clear() {
	r.alerts = nil
}

func newAlert(typ AlertType, severity Severity, metric string, value, threshold float64, message string, at time.Time) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Type:      typ,
		Severity:  severity,
		Metric:    metric,
		Value:     value,
		Threshold: threshold,
		Message:   message,
		Timestamp: at,
	}
}
