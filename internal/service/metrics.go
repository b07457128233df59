package service

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shiftopt/internal/model"
)

// Metrics tracks optimization outcomes and exposes them in Prometheus text
// format. Counter updates are atomic; the derived gauges read a snapshot
// under the same lock.
type Metrics struct {
	registry *prometheus.Registry

	total      prometheus.Counter
	successful prometheus.Counter
	failed     prometheus.Counter
	algorithms *prometheus.CounterVec
	violations *prometheus.CounterVec

	mu          sync.Mutex
	runCount    int64
	successes   int64
	totalTimeMS float64
}

// NewMetrics builds and registers the metric set on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.total = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimization_total_requests",
		Help: "Total optimization requests received.",
	})
	m.successful = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimization_successful_requests",
		Help: "Optimization requests that produced a solution.",
	})
	m.failed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimization_failed_requests",
		Help: "Optimization requests that failed.",
	})
	m.algorithms = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimization_algorithm_usage",
		Help: "Optimization runs per algorithm.",
	}, []string{"algorithm"})
	m.violations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimization_constraint_violations",
		Help: "Post-solve constraint violations per constraint kind.",
	}, []string{"constraint"})

	avg := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "optimization_average_processing_time_ms",
		Help: "Running mean processing time in milliseconds.",
	}, m.averageProcessingMS)
	rate := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "optimization_success_rate",
		Help: "Fraction of requests that succeeded.",
	}, m.successRate)

	m.registry.MustRegister(m.total, m.successful, m.failed, m.algorithms, m.violations, avg, rate)
	return m
}

// RecordRun accounts for one finished optimization run.
func (m *Metrics) RecordRun(algorithm model.AlgorithmKind, processingMS float64, success bool) {
	m.total.Inc()
	m.algorithms.WithLabelValues(string(algorithm)).Inc()
	if success {
		m.successful.Inc()
	} else {
		m.failed.Inc()
	}

	m.mu.Lock()
	m.runCount++
	m.totalTimeMS += processingMS
	if success {
		m.successes++
	}
	m.mu.Unlock()
}

// RecordViolation counts one post-solve constraint violation.
func (m *Metrics) RecordViolation(kind string) {
	m.violations.WithLabelValues(kind).Inc()
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) averageProcessingMS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runCount == 0 {
		return 0
	}
	return m.totalTimeMS / float64(m.runCount)
}

func (m *Metrics) successRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runCount == 0 {
		return 0
	}
	return float64(m.successes) / float64(m.runCount)
}
