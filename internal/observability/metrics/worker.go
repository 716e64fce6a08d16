package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	jobTotal    *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobInFlight prometheus.Gauge
	queueLag    *prometheus.HistogramVec

	engineCallsTotal *prometheus.CounterVec
	batchItemsTotal  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	jobTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cleansync",
			Subsystem: "worker",
			Name:      "job_total",
			Help:      "Total processed jobs by kind and status.",
		},
		[]string{"service", "kind", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cleansync",
			Subsystem: "worker",
			Name:      "job_duration_seconds",
			Help:      "Job processing duration in seconds by kind and status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "kind", "status"},
	)
	jobInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cleansync",
			Subsystem: "worker",
			Name:      "job_in_flight",
			Help:      "Number of in-flight jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cleansync",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between job acceptance and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	engineCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cleansync",
			Subsystem: "engine",
			Name:      "calls_total",
			Help:      "Total reasoning engine calls by capability and outcome.",
		},
		[]string{"service", "capability", "outcome"},
	)
	batchItemsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cleansync",
			Subsystem: "worker",
			Name:      "batch_items_total",
			Help:      "Total terminal batch items by status.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(jobTotal, jobDuration, jobInFlight, queueLag, engineCallsTotal, batchItemsTotal)

	return &WorkerMetrics{
		registry:         registry,
		jobTotal:         jobTotal,
		jobDuration:      jobDuration,
		jobInFlight:      jobInFlight,
		queueLag:         queueLag,
		engineCallsTotal: engineCallsTotal,
		batchItemsTotal:  batchItemsTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartJob() {
	m.jobInFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(service, kind string, duration time.Duration, err error) {
	m.jobInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.jobTotal.WithLabelValues(service, kind, status).Inc()
	m.jobDuration.WithLabelValues(service, kind, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordEngineCall(service, capability, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.engineCallsTotal.WithLabelValues(service, capability, outcome).Inc()
}

func (m *WorkerMetrics) RecordBatchItem(service, status string) {
	if status == "" {
		status = "unknown"
	}
	m.batchItemsTotal.WithLabelValues(service, status).Inc()
}
