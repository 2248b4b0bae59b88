package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HandlerOptions configures the Prometheus scrape handler.
type HandlerOptions struct {
	// IncludeRuntime adds the Go runtime and process collectors.
	IncludeRuntime bool

	// ErrorLog receives collection errors. Optional.
	ErrorLog promhttp.Logger
}

// Handler returns an HTTP handler that serves r through client_golang.
// Unlike TextHandler the output includes histogram _bucket series, and
// OpenMetrics is negotiated when the scraper asks for it.
//
// Example:
//
//	mux.Handle("/metrics/prometheus", registry.Handler(metrics.HandlerOptions{}))
func (r *Registry) Handler(opts HandlerOptions) http.Handler {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(r.Collector())
	if opts.IncludeRuntime {
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return promhttp.HandlerFor(
		promReg,
		promhttp.HandlerOpts{
			// Enable OpenMetrics encoding (preferred over Prometheus text format)
			EnableOpenMetrics: true,

			// Error handling
			ErrorHandling: promhttp.ContinueOnError,
			ErrorLog:      opts.ErrorLog,
		},
	)
}

// TextHandler serves ExportPrometheus output.
func (r *Registry) TextHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(r.ExportPrometheus()))
	})
}

// JSONHandler serves GetAllMetrics as JSON.
func (r *Registry) JSONHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(r.GetAllMetrics())
	})
}
