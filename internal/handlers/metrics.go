package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler returns the Prometheus metrics handler. Database gauges are
// refreshed on every scrape.
func (h *Handlers) MetricsHandler() http.Handler {
	next := promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}),
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.db != nil {
			h.db.UpdateDBMetrics()
		}
		next.ServeHTTP(w, r)
	})
}
