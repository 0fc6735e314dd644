// Package metrics tracks request/error/latency counters for every core
// operation and exposes them two ways: as Prometheus collectors for
// external scraping, and as an in-process snapshot for the `metrics`
// operation itself (§6 of the request surface).
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/turtacn/docintel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/docintel/internal/infrastructure/monitoring/prometheus"
)

// defaultDurationBuckets mirrors the teacher's HTTP-latency buckets; core
// operations (search, answer, suggestUpdate, ...) fall in the same range.
var defaultDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// opStats accumulates request/error/latency counts for one operation name.
type opStats struct {
	requests   int64
	errors     int64
	totalNanos int64
}

// Metrics records per-operation outcomes. It is safe for concurrent use by
// every transport (HTTP, gRPC, CLI) and background component (watcher,
// update agent) that calls an operation.
type Metrics struct {
	mu   sync.Mutex
	byOp map[string]*opStats

	requestsTotal prometheus.CounterVec
	errorsTotal   prometheus.CounterVec
	duration      prometheus.HistogramVec
	toolCalls     prometheus.CounterVec

	collector prometheus.MetricsCollector
	logger    logging.Logger
}

// New builds a Metrics instance backed by a fresh Prometheus registry under
// the "docintel" namespace.
func New(logger logging.Logger) (*Metrics, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:               "docintel",
		Subsystem:               "core",
		EnableProcessMetrics:    true,
		EnableGoMetrics:         true,
		DefaultHistogramBuckets: defaultDurationBuckets,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		byOp:          make(map[string]*opStats),
		requestsTotal: collector.RegisterCounter("requests_total", "Total core operation requests", "operation"),
		errorsTotal:   collector.RegisterCounter("errors_total", "Total core operation errors", "operation"),
		duration:      collector.RegisterHistogram("operation_duration_seconds", "Core operation duration", nil, "operation"),
		toolCalls:     collector.RegisterCounter("tool_calls_total", "Total calls per tool/operation name", "tool"),
		collector:     collector,
		logger:        logger,
	}, nil
}

// Handler returns the Prometheus scrape handler for the collectors
// registered by New. The HTTP router does not mount it; its /metrics route
// serves the JSON snapshot instead.
func (m *Metrics) Handler() http.Handler {
	return m.collector.Handler()
}

// RecordOperation records one completed call to a named core operation
// (search, answer, suggestUpdate, applyUpdate, ...), its outcome, and its
// wall-clock duration.
func (m *Metrics) RecordOperation(operation string, err error, duration time.Duration) {
	m.requestsTotal.WithLabelValues(operation).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
	m.toolCalls.WithLabelValues(operation).Inc()
	if err != nil {
		m.errorsTotal.WithLabelValues(operation).Inc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byOp[operation]
	if !ok {
		s = &opStats{}
		m.byOp[operation] = s
	}
	s.requests++
	s.totalNanos += duration.Nanoseconds()
	if err != nil {
		s.errors++
	}
}

// OperationReport is the per-operation breakdown returned under the
// `toolCalls` key of the `metrics` operation response.
type OperationReport struct {
	Requests      int64   `json:"requests"`
	Errors        int64   `json:"errors"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
}

// Snapshot is the full response payload for the `metrics` operation:
// {requests, errors, avgLatency, toolCalls{}}.
type Snapshot struct {
	Requests   int64                       `json:"requests"`
	Errors     int64                       `json:"errors"`
	AvgLatency float64                     `json:"avg_latency_ms"`
	ToolCalls  map[string]OperationReport  `json:"tool_calls"`
}

// Snapshot aggregates the running per-operation counters into the shape the
// `metrics` operation returns.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var totalRequests, totalErrors, totalNanos int64
	toolCalls := make(map[string]OperationReport, len(m.byOp))
	for op, s := range m.byOp {
		totalRequests += s.requests
		totalErrors += s.errors
		totalNanos += s.totalNanos

		avg := 0.0
		if s.requests > 0 {
			avg = float64(s.totalNanos) / float64(s.requests) / float64(time.Millisecond)
		}
		toolCalls[op] = OperationReport{Requests: s.requests, Errors: s.errors, AvgLatencyMS: avg}
	}

	avgLatency := 0.0
	if totalRequests > 0 {
		avgLatency = float64(totalNanos) / float64(totalRequests) / float64(time.Millisecond)
	}

	return Snapshot{
		Requests:   totalRequests,
		Errors:     totalErrors,
		AvgLatency: avgLatency,
		ToolCalls:  toolCalls,
	}
}
