package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sinkhole_watch"

// Run outcomes recorded by RecordRun.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Metrics owns a private registry. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal            *prometheus.CounterVec
	runDuration          *prometheus.HistogramVec
	entriesTotal         *prometheus.CounterVec
	notificationFailures prometheus.Counter
	lastSuccessTS        *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Number of task runs by task and outcome",
	}, []string{"task", "outcome"})
	m.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Time spent in a task run",
		Buckets:   prometheus.DefBuckets,
	}, []string{"task"})
	m.entriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entries_total",
		Help:      "Feed entries by pipeline stage (matched, created, skipped, marked)",
	}, []string{"stage"})
	m.notificationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Webhook deliveries that failed and were dropped",
	})
	m.lastSuccessTS = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful run",
	}, []string{"task"})

	m.registry.MustRegister(
		m.runsTotal, m.runDuration, m.entriesTotal,
		m.notificationFailures, m.lastSuccessTS,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) RecordRun(task, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(task, outcome).Inc()
	m.runDuration.WithLabelValues(task).Observe(duration.Seconds())
	if outcome == OutcomeSuccess {
		m.lastSuccessTS.WithLabelValues(task).SetToCurrentTime()
	}
}

func (m *Metrics) AddEntries(stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.entriesTotal.WithLabelValues(stage).Add(float64(n))
}

func (m *Metrics) NotificationFailed(error) {
	if m == nil {
		return
	}
	m.notificationFailures.Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
