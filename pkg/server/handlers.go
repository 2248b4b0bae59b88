package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/beacon/pkg/performance"
	"mercator-hq/beacon/pkg/telemetry/logging"
	"mercator-hq/beacon/pkg/telemetry/tracing"
)

// maxBodyBytes bounds performance sample uploads.
const maxBodyBytes = 1 << 20

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

// alertsResponse is returned when a sample is recorded.
type alertsResponse struct {
	Alerts []performance.Alert `json:"alerts"`
}

type handlers struct {
	tracer  *tracing.Tracer
	monitor *performance.Monitor
	logger  logging.LevelLogger
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// traceQuery parses the /traces filters: name, status, min_duration,
// max_duration, since, until and limit.
func traceQuery(r *http.Request) (tracing.TraceQuery, error) {
	v := r.URL.Query()
	q := tracing.TraceQuery{
		Name:   v.Get("name"),
		Status: tracing.Status(v.Get("status")),
		Limit:  100,
	}

	switch q.Status {
	case "", tracing.StatusPending, tracing.StatusSuccess, tracing.StatusError:
	default:
		return q, fmt.Errorf("invalid status %q", q.Status)
	}

	var err error
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit < 0 {
			return q, fmt.Errorf("invalid limit %q", s)
		}
	}
	for key, dst := range map[string]*time.Duration{"min_duration": &q.MinDuration, "max_duration": &q.MaxDuration} {
		if s := v.Get(key); s != "" {
			if *dst, err = time.ParseDuration(s); err != nil {
				return q, fmt.Errorf("invalid %s %q: %w", key, s, err)
			}
		}
	}
	for key, dst := range map[string]*time.Time{"since": &q.StartedAfter, "until": &q.StartedBefore} {
		if s := v.Get(key); s != "" {
			if *dst, err = time.Parse(time.RFC3339, s); err != nil {
				return q, fmt.Errorf("invalid %s %q: %w", key, s, err)
			}
		}
	}
	return q, nil
}

func (h *handlers) listTraces(w http.ResponseWriter, r *http.Request) {
	q, err := traceQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	traces := h.tracer.SearchTraces(q)
	if traces == nil {
		traces = []*tracing.Trace{}
	}
	writeJSON(w, http.StatusOK, traces)
}

func (h *handlers) getTrace(w http.ResponseWriter, r *http.Request) {
	tr, ok := h.tracer.GetTrace(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, tracing.ErrTraceNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (h *handlers) exportTrace(w http.ResponseWriter, r *http.Request) {
	export := h.tracer.ExportTrace(r.PathValue("id"))
	if export == nil {
		writeError(w, http.StatusNotFound, tracing.ErrTraceNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, export)
}

// decodeSample reads a JSON sample into dst, rejecting unknown fields and
// oversized bodies.
func decodeSample(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		writeError(w, code, "invalid sample: "+err.Error())
		return false
	}
	return true
}

func (h *handlers) recordVitals(w http.ResponseWriter, r *http.Request) {
	var v performance.WebVitals
	if !decodeSample(w, r, &v) {
		return
	}
	writeJSON(w, http.StatusAccepted, alertsResponse{Alerts: nonNil(h.monitor.RecordWebVitals(v))})
}

func (h *handlers) recordBundle(w http.ResponseWriter, r *http.Request) {
	var b performance.BundleMetrics
	if !decodeSample(w, r, &b) {
		return
	}
	if b.TotalSize < 0 || b.InitialSize < 0 || b.AsyncSize < 0 || b.ChunkCount < 0 {
		writeError(w, http.StatusBadRequest, "invalid sample: negative size")
		return
	}
	writeJSON(w, http.StatusAccepted, alertsResponse{Alerts: nonNil(h.monitor.RecordBundle(b))})
}

func (h *handlers) recordBuild(w http.ResponseWriter, r *http.Request) {
	var b performance.BuildMetrics
	if !decodeSample(w, r, &b) {
		return
	}
	if b.Duration < 0 {
		writeError(w, http.StatusBadRequest, "invalid sample: negative duration")
		return
	}
	writeJSON(w, http.StatusAccepted, alertsResponse{Alerts: nonNil(h.monitor.RecordBuild(b))})
}

func (h *handlers) getAlerts(w http.ResponseWriter, r *http.Request) {
	var alerts []performance.Alert
	if s := r.URL.Query().Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid since %q", s))
			return
		}
		alerts = h.monitor.GetAlertsSince(since)
	} else {
		alerts = h.monitor.GetAlerts()
	}
	writeJSON(w, http.StatusOK, alertsResponse{Alerts: nonNil(alerts)})
}

func (h *handlers) clearAlerts(w http.ResponseWriter, r *http.Request) {
	h.monitor.ClearAlerts()
	h.logger.Info("performance alerts cleared", "request_id", logging.GetRequestID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) getTrends(w http.ResponseWriter, r *http.Request) {
	trends := h.monitor.GetTrends()
	if trends == nil {
		trends = []performance.Trend{}
	}
	writeJSON(w, http.StatusOK, trends)
}

func (h *handlers) getHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", s))
			return
		}
		limit = n
	}
	history := h.monitor.GetHistory(limit)
	if history == nil {
		history = []performance.Measurement{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *handlers) getReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Report())
}

func nonNil(alerts []performance.Alert) []performance.Alert {
	if alerts == nil {
		return []performance.Alert{}
	}
	return alerts
}
