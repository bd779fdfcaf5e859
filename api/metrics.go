package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the counters and histograms backing GET /metrics.
type Metrics struct {
	requestsTotal     *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	isolationSetupSec prometheus.Histogram
}

// NewMetrics registers the sandboxd metric family on a dedicated registry
// and returns it wired into the *Metrics value.
func NewMetrics() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sandboxd_requests_total",
			Help: "Total run_code/run_jupyter requests by language and status.",
		}, []string{"operation", "language", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sandboxd_run_duration_seconds",
			Help:    "Wall-clock duration of a run_code/run_jupyter call.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "language"}),
		isolationSetupSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sandboxd_isolation_setup_seconds",
			Help:    "Time spent preparing one ephemeral overlay/cgroup/netns sandbox.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.requestsTotal, m.runDuration, m.isolationSetupSec)
	return m, reg
}

// MountMetrics exposes reg at GET /metrics.
func MountMetrics(e *echo.Echo, reg *prometheus.Registry) {
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	e.GET("/metrics", echo.WrapHandler(handler))
}

// ObserveRun records one completed run_code/run_jupyter call's duration and
// terminal status.
func (m *Metrics) ObserveRun(operation, language, status string, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(operation, language, status).Inc()
	m.runDuration.WithLabelValues(operation, language).Observe(elapsed.Seconds())
}

// ObserveIsolationSetup records how long one sandbox's overlay/cgroup/netns
// preparation took, independent of the compile/run phases that follow.
func (m *Metrics) ObserveIsolationSetup(elapsed time.Duration) {
	m.isolationSetupSec.Observe(elapsed.Seconds())
}
