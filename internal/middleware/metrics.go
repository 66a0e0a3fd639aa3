// Package middleware holds Echo middleware shared by the HTTP server:
// Prometheus metrics, per-client rate limiting and request ids.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the collectors of one registry so tests can build isolated
// instances.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
	httpResponseSize     *prometheus.HistogramVec

	jobsTotal   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec

	districtLookups *prometheus.CounterVec
}

// NewMetrics registers the parkwatch collectors plus the Go and process
// collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method", "path"}),
		httpRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
		httpResponseSize: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"method", "path"}),
		jobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_jobs_total",
			Help: "Total number of queue jobs processed",
		}, []string{"job_type", "status"}),
		jobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "queue_job_duration_seconds",
			Help:    "Queue job processing duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"job_type"}),
		districtLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "district_resolutions_total",
			Help: "District resolutions by outcome",
		}, []string{"outcome"}),
	}
}

// Middleware records request count, latency and response size per route
// template. The /metrics endpoint itself is not recorded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}

			start := time.Now()
			m.httpRequestsInFlight.Inc()
			defer m.httpRequestsInFlight.Dec()

			// Hand errors to the server's error handler here so the recorded
			// status is the one the client receives.
			if err := next(c); err != nil {
				c.Error(err)
			}

			method := c.Request().Method
			path := c.Path()
			m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Response().Status)).Inc()
			m.httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			m.httpResponseSize.WithLabelValues(method, path).Observe(float64(c.Response().Size))
			return nil
		}
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordJob counts a finished job.
func (m *Metrics) RecordJob(jobType string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.jobsTotal.WithLabelValues(jobType, status).Inc()
	m.jobDuration.WithLabelValues(jobType).Observe(d.Seconds())
}

// RecordDistrictLookup counts a resolution as "found" or "missing".
func (m *Metrics) RecordDistrictLookup(found bool) {
	outcome := "missing"
	if found {
		outcome = "found"
	}
	m.districtLookups.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
