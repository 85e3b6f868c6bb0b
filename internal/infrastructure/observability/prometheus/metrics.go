package metrics

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/qtrack/internal/application/dto"
)

// Metrics - коллекторы Prometheus для HTTP API и quality gates.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	AuthFailures       prometheus.Counter
	RateLimitDropped   prometheus.Counter

	GatePassed       *prometheus.GaugeVec
	GateActualValue  *prometheus.GaugeVec
	OverallHealth    prometheus.Gauge
	EvaluationsTotal prometheus.Counter
}

func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qtrack_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qtrack_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qtrack_auth_failures_total",
			Help: "Total number of rejected authentication attempts.",
		}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qtrack_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		GatePassed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "qtrack_quality_gate_passed",
			Help: "1 if the quality gate passed on the last evaluation, 0 otherwise.",
		}, []string{"gate"}),
		GateActualValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "qtrack_quality_gate_actual_value",
			Help: "Metric value observed by the quality gate on the last evaluation.",
		}, []string{"gate"}),
		OverallHealth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "qtrack_quality_overall_health_percent",
			Help: "Share of passed quality gates, in percent.",
		}),
		EvaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qtrack_quality_evaluations_total",
			Help: "Total number of quality gate evaluations.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.AuthFailures,
		m.RateLimitDropped,
		m.GatePassed,
		m.GateActualValue,
		m.OverallHealth,
		m.EvaluationsTotal,
	)

	return m
}

// PublishEvaluation обновляет gauges по отчету; реализует port.MetricsPublisher.
func (m *Metrics) PublishEvaluation(_ context.Context, report *dto.QualityReportDTO) error {
	if report == nil {
		return nil
	}

	m.GatePassed.Reset()
	m.GateActualValue.Reset()

	for _, r := range report.Results {
		passed := 0.0
		if r.Passed {
			passed = 1
		}
		m.GatePassed.WithLabelValues(r.GateID).Set(passed)
		m.GateActualValue.WithLabelValues(r.GateID).Set(r.ActualValue)
	}

	m.OverallHealth.Set(report.Summary.OverallHealth)
	m.EvaluationsTotal.Inc()
	return nil
}

// Flush - no-op: Prometheus забирает значения сам.
func (m *Metrics) Flush(context.Context) error {
	return nil
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := routeLabel(r)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

// routeLabel берет шаблон маршрута chi, чтобы id не раздували кардинальность.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack нужен для websocket upgrade.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
