package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/beacon/pkg/config"
	"mercator-hq/beacon/pkg/performance"
	"mercator-hq/beacon/pkg/telemetry"
	"mercator-hq/beacon/pkg/telemetry/health"
	"mercator-hq/beacon/pkg/telemetry/tracing"
)

func newTestServer(t *testing.T) (*Server, *telemetry.Telemetry) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Performance.Budgets = []config.BudgetConfig{{Type: "initial", Limit: 200}}

	tel, err := telemetry.New(context.Background(), cfg, "test", telemetry.WithLogWriter(io.Discard))
	if err != nil {
		t.Fatalf("telemetry.New() error = %v", err)
	}
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })
	return NewServer(cfg.Server, tel, health.VersionInfo{Service: "beacon", Version: "test"}), tel
}

func do(t *testing.T, h http.Handler, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Routes(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		wantCode int
		wantBody string
	}{
		{"metrics text", http.MethodGet, "/metrics", "", http.StatusOK, "# TYPE beacon_traces_started_total counter"},
		{"metrics json", http.MethodGet, "/metrics/json", "", http.StatusOK, `"counters"`},
		{"prometheus scrape", http.MethodGet, "/metrics/prometheus", "", http.StatusOK, "beacon_trace_duration_seconds_bucket"},
		{"vitals", http.MethodPost, "/performance/vitals", `{"url":"/","lcp":4000}`, http.StatusAccepted, `"type":"threshold_exceeded"`},
		{"vitals within thresholds", http.MethodPost, "/performance/vitals", `{"lcp":1000}`, http.StatusAccepted, `{"alerts":[]}`},
		{"bundle over budget", http.MethodPost, "/performance/bundle", `{"totalSize":512000,"initialSize":256000}`, http.StatusAccepted, `"type":"budget_violation"`},
		{"negative bundle", http.MethodPost, "/performance/bundle", `{"totalSize":-1}`, http.StatusBadRequest, "negative size"},
		{"failed build", http.MethodPost, "/performance/build", `{"duration":1200,"success":false}`, http.StatusAccepted, `"type":"build_failure"`},
		{"malformed sample", http.MethodPost, "/performance/build", `{"duration":`, http.StatusBadRequest, "invalid sample"},
		{"unknown field", http.MethodPost, "/performance/vitals", `{"lcpp":1}`, http.StatusBadRequest, "invalid sample"},
		{"alerts", http.MethodGet, "/performance/alerts", "", http.StatusOK, `"alerts":[`},
		{"alerts bad since", http.MethodGet, "/performance/alerts?since=yesterday", "", http.StatusBadRequest, "invalid since"},
		{"trends", http.MethodGet, "/performance/trends", "", http.StatusOK, `"metric":"lcp"`},
		{"history", http.MethodGet, "/performance/history?limit=1", "", http.StatusOK, `"kind":"build"`},
		{"history bad limit", http.MethodGet, "/performance/history?limit=-2", "", http.StatusBadRequest, "invalid limit"},
		{"report", http.MethodGet, "/performance/report", "", http.StatusOK, `"samples"`},
		{"unknown trace", http.MethodGet, "/traces/nope", "", http.StatusNotFound, "trace not found"},
		{"unknown trace export", http.MethodGet, "/traces/nope/otlp", "", http.StatusNotFound, "trace not found"},
		{"traces bad status", http.MethodGet, "/traces?status=weird", "", http.StatusBadRequest, "invalid status"},
		{"traces bad duration", http.MethodGet, "/traces?min_duration=fast", "", http.StatusBadRequest, "invalid min_duration"},
		{"liveness", http.MethodGet, "/health", "", http.StatusOK, `"status":"ok"`},
		{"version", http.MethodGet, "/version", "", http.StatusOK, `"service":"beacon"`},
		{"wrong method", http.MethodGet, "/performance/vitals", "", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("%s %s = %d, want %d: %s", tt.method, tt.target, rec.Code, tt.wantCode, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %s", rec.Body.String(), tt.wantBody)
			}
			if rec.Header().Get(tracing.ResponseHeaderTraceID) == "" {
				t.Error("response has no trace ID header")
			}
			if rec.Header().Get(RequestIDHeader) == "" {
				t.Error("response has no request ID header")
			}
		})
	}
}

func TestHandler_MetricsTextHasNoBuckets(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), http.MethodGet, "/metrics", "", nil)
	if strings.Contains(rec.Body.String(), "_bucket") {
		t.Errorf("/metrics contains _bucket series:\n%s", rec.Body.String())
	}
}

func TestHandler_RequestsAreTraced(t *testing.T) {
	srv, tel := newTestServer(t)
	h := srv.Handler()

	first := do(t, h, http.MethodGet, "/performance/trends", "", nil)
	id := first.Header().Get(tracing.ResponseHeaderTraceID)

	rec := do(t, h, http.MethodGet, "/traces/"+id, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /traces/%s = %d", id, rec.Code)
	}
	var tr tracing.Trace
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode trace: %v", err)
	}
	if tr.Name != "GET /performance/trends" || tr.Status != tracing.StatusSuccess {
		t.Errorf("trace = %s %s, want GET /performance/trends success", tr.Name, tr.Status)
	}
	if len(tr.Spans) != 1 || tr.Spans[0].Name != "http.server" {
		t.Errorf("spans = %+v, want one http.server root", tr.Spans)
	}

	rec = do(t, h, http.MethodGet, "/traces/"+id+"/otlp", "", nil)
	var export tracing.OTLPExport
	if err := json.Unmarshal(rec.Body.Bytes(), &export); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(export.ResourceSpans) != 1 {
		t.Errorf("resourceSpans = %d, want 1", len(export.ResourceSpans))
	}

	rec = do(t, h, http.MethodGet, "/traces?name=trends&status=success", "", nil)
	var list []tracing.Trace
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != id {
		t.Errorf("filtered traces = %+v, want only %s", list, id)
	}

	if tel.Tracer().TraceCount() < 3 {
		t.Errorf("TraceCount() = %d, want every request traced", tel.Tracer().TraceCount())
	}
}

func TestHandler_ContinuesIncomingTrace(t *testing.T) {
	srv, tel := newTestServer(t)
	h := srv.Handler()

	header := http.Header{}
	header.Set(tracing.HeaderTraceID, "4bf92f3577b34da6a3ce929d0e0e4736")
	header.Set(tracing.HeaderSpanID, "00f067aa0ba902b7")
	rec := do(t, h, http.MethodGet, "/health", "", header)

	if got := rec.Header().Get(tracing.ResponseHeaderTraceID); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("X-Trace-ID = %q, want the incoming trace", got)
	}
	tr, ok := tel.Tracer().GetTrace("4bf92f3577b34da6a3ce929d0e0e4736")
	if !ok {
		t.Fatal("continued trace not stored")
	}
	if tr.RemoteParentSpanID != "00f067aa0ba902b7" {
		t.Errorf("RemoteParentSpanID = %q", tr.RemoteParentSpanID)
	}
}

func TestHandler_ReadinessDegradesOnErrorAlerts(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.Health.AlertWindow = time.Hour
	tel, err := telemetry.New(context.Background(), cfg, "test", telemetry.WithLogWriter(io.Discard))
	if err != nil {
		t.Fatalf("telemetry.New() error = %v", err)
	}
	defer tel.Shutdown(context.Background())
	h := NewServer(cfg.Server, tel, health.VersionInfo{}).Handler()

	if rec := do(t, h, http.MethodGet, "/ready", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("GET /ready = %d, want 200", rec.Code)
	}
	tel.Monitor().RecordBuild(performance.BuildMetrics{Duration: 10})
	rec := do(t, h, http.MethodGet, "/ready", "", nil)
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), health.CheckPerformanceAlerts) {
		t.Errorf("GET /ready = %d %s, want 503 naming %s", rec.Code, rec.Body.String(), health.CheckPerformanceAlerts)
	}
}

func TestServer_StartShutdown(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !srv.IsRunning() {
		t.Error("IsRunning() = false after start")
	}
	if err := srv.Start(ctx); err == nil {
		t.Error("second Start() succeeded")
	}

	resp, err := http.Get("http://" + srv.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Start() returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestServer_StartInvalidAddress(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.config.ListenAddress = "256.0.0.1:bad"
	if err := srv.Start(context.Background()); err == nil {
		t.Error("Start() with invalid address succeeded")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after failed start")
	}
}
