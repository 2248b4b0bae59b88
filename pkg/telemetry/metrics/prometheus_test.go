package metrics

import (
	"strings"
	"testing"
)

func TestExportPrometheus(t *testing.T) {
	r := NewRegistry()
	r.CreateSummary("req_latency", "Latency.", []float64{0.5, 0.9}, nil)
	r.CreateHistogram("payload_bytes", "Payload size.", []float64{100, 1000}, Labels{"route": "/api"})
	r.CreateGauge("inflight", "In flight.", nil).Set(3)
	c := r.CreateCounter("requests_total", "Requests.", Labels{"service": "web", "env": "prod"})
	_ = c.Add(7)

	h, _ := r.GetHistogram("payload_bytes")
	h.Observe(50)
	h.Observe(500)

	s, _ := r.GetSummary("req_latency")
	for _, v := range []float64{1, 2, 3, 4} {
		s.Observe(v)
	}

	want := `# HELP requests_total Requests.
# TYPE requests_total counter
requests_total{env="prod",service="web"} 7
# HELP inflight In flight.
# TYPE inflight gauge
inflight 3
# HELP payload_bytes Payload size.
# TYPE payload_bytes histogram
payload_bytes_sum{route="/api"} 550
payload_bytes_count{route="/api"} 2
# HELP req_latency Latency.
# TYPE req_latency summary
req_latency{quantile="0.5"} 2
req_latency{quantile="0.9"} 4
req_latency_sum 10
req_latency_count 4
`
	if got := r.ExportPrometheus(); got != want {
		t.Errorf("ExportPrometheus() =\n%s\nwant\n%s", got, want)
	}
}

func TestExportPrometheus_NoBucketLines(t *testing.T) {
	r := NewRegistry()
	r.CreateHistogram("h", "", []float64{1, 2, 3}, nil).Observe(2)

	out := r.ExportPrometheus()
	if strings.Contains(out, "_bucket") {
		t.Errorf("ExportPrometheus() produced bucket lines:\n%s", out)
	}
}

func TestExportPrometheus_Escaping(t *testing.T) {
	r := NewRegistry()
	r.CreateGauge("g", "line one\nback\\slash", Labels{"path": `C:\tmp "x"`}).Set(1)

	out := r.ExportPrometheus()
	if !strings.Contains(out, `# HELP g line one\nback\\slash`) {
		t.Errorf("help not escaped:\n%s", out)
	}
	if !strings.Contains(out, `g{path="C:\\tmp \"x\""} 1`) {
		t.Errorf("label value not escaped:\n%s", out)
	}
}

func TestExportPrometheus_Empty(t *testing.T) {
	if got := NewRegistry().ExportPrometheus(); got != "" {
		t.Errorf("ExportPrometheus() on empty registry = %q", got)
	}
}
