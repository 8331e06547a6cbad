package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation behind a private
// registry so only this service's collectors are exposed.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	examsCreated    prometheus.Counter
	submissions     prometheus.Counter
	gradesPublished prometheus.Counter
	gradingJobs     *prometheus.CounterVec
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	examsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exams_created_total",
		Help: "Total exams created",
	})

	submissions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "submissions_total",
		Help: "Total answer sheets submitted",
	})

	gradesPublished := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grades_published_total",
		Help: "Total grades published to students",
	})

	gradingJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grading_jobs_total",
		Help: "Background grading jobs by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, examsCreated, submissions, gradesPublished, gradingJobs, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		examsCreated:    examsCreated,
		submissions:     submissions,
		gradesPublished: gradesPublished,
		gradingJobs:     gradingJobs,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordExamCreated increments the exam counter.
func (m *MetricsService) RecordExamCreated() {
	if m == nil {
		return
	}
	m.examsCreated.Inc()
}

// RecordSubmission increments the submission counter.
func (m *MetricsService) RecordSubmission() {
	if m == nil {
		return
	}
	m.submissions.Inc()
}

// RecordGradePublished increments the published grade counter.
func (m *MetricsService) RecordGradePublished() {
	if m == nil {
		return
	}
	m.gradesPublished.Inc()
}

// RecordGradingJob tallies a background grading job by outcome.
func (m *MetricsService) RecordGradingJob(outcome string) {
	if m == nil {
		return
	}
	m.gradingJobs.WithLabelValues(outcome).Inc()
}
