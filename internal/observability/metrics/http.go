package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	submissionsTotal   *prometheus.CounterVec
	routingTotal       *prometheus.CounterVec
	overloadTotal      *prometheus.CounterVec
	rateLimitedTotal   *prometheus.CounterVec
	finalConfidenceObs *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docgate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docgate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docgate",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	submissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docgate",
			Subsystem: "pipeline",
			Name:      "submissions_total",
			Help:      "Total accepted submissions by lane.",
		},
		[]string{"service", "lane"},
	)
	routingTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docgate",
			Subsystem: "pipeline",
			Name:      "routing_total",
			Help:      "Total routed documents by decision.",
		},
		[]string{"service", "decision"},
	)
	overloadTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docgate",
			Subsystem: "pipeline",
			Name:      "overload_rejections_total",
			Help:      "Total async submissions rejected at capacity.",
		},
		[]string{"service"},
	)
	rateLimitedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docgate",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total requests rejected by the rate limiter.",
		},
		[]string{"service"},
	)
	finalConfidenceObs := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docgate",
			Subsystem: "pipeline",
			Name:      "final_confidence",
			Help:      "Distribution of final confidence scores.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 100},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		submissionsTotal,
		routingTotal,
		overloadTotal,
		rateLimitedTotal,
		finalConfidenceObs,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		submissionsTotal:   submissionsTotal,
		routingTotal:       routingTotal,
		overloadTotal:      overloadTotal,
		rateLimitedTotal:   rateLimitedTotal,
		finalConfidenceObs: finalConfidenceObs,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/jobs/"):
		return "/v1/jobs/{job_id}"
	case strings.HasPrefix(path, "/v1/history/") && path != "/v1/history/stats":
		return "/v1/history/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordSubmission(service, lane string) {
	m.submissionsTotal.WithLabelValues(service, lane).Inc()
}

func (m *HTTPServerMetrics) RecordRouting(service, decision string, finalConfidence float64) {
	if decision == "" {
		decision = "unknown"
	}
	m.routingTotal.WithLabelValues(service, decision).Inc()
	m.finalConfidenceObs.WithLabelValues(service).Observe(finalConfidence)
}

func (m *HTTPServerMetrics) RecordOverloadRejection(service string) {
	m.overloadTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordRateLimited(service string) {
	m.rateLimitedTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}
