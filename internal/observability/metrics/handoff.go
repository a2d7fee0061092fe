// Package metrics provides custom Prometheus metrics for the oscigo components.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/osci-render/osci-go/internal/handoff"
)

// HandoffMetrics exports the lifecycle and throughput of background workers.
// It implements handoff.MetricsRecorder.
type HandoffMetrics struct {
	batchesTotal   *prometheus.CounterVec
	batchSize      *prometheus.HistogramVec
	batchDuration  *prometheus.HistogramVec
	taskErrors     *prometheus.CounterVec
	backlogTotal   *prometheus.CounterVec
	backlogPending *prometheus.GaugeVec
	workerState    *prometheus.GaugeVec
	capacity       *prometheus.GaugeVec
	activeWorkers  prometheus.Gauge
}

var _ handoff.MetricsRecorder = (*HandoffMetrics)(nil)

// NewHandoffMetrics creates the worker metrics and registers them.
func NewHandoffMetrics(registry prometheus.Registerer) (*HandoffMetrics, error) {
	m := &HandoffMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *HandoffMetrics) initMetrics() {
	m.batchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "handoff",
			Name:      "batches_total",
			Help:      "Total number of batches delivered to worker tasks",
		},
		[]string{"worker"},
	)

	m.batchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "handoff",
			Name:      "batch_size_samples",
			Help:      "Number of samples per delivered batch",
			Buckets:   prometheus.ExponentialBuckets(BucketStart16Samples, BucketFactor2, BucketCount10), // 16 to 8192
		},
		[]string{"worker"},
	)

	m.batchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "handoff",
			Name:      "batch_duration_seconds",
			Help:      "Time spent by the task processing one batch",
			Buckets:   prometheus.ExponentialBuckets(BucketStart10us, BucketFactor2, BucketCount12), // 10µs to ~40ms
		},
		[]string{"worker"},
	)

	m.taskErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "handoff",
			Name:      "task_errors_total",
			Help:      "Total number of failed task runs",
		},
		[]string{"worker", "kind"}, // kind: error, panic
	)

	m.backlogTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "handoff",
			Name:      "backlog_events_total",
			Help:      "Batches after which the producer had already started overwriting the ready buffer",
		},
		[]string{"worker"},
	)

	m.backlogPending = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "handoff",
			Name:      "backlog_pending_samples",
			Help:      "Samples written into the next batch when the last backlog was observed",
		},
		[]string{"worker"},
	)

	m.workerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "handoff",
			Name:      "worker_state",
			Help:      "Current worker state (1 for the active state label)",
		},
		[]string{"worker", "state"},
	)

	m.capacity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "handoff",
			Name:      "buffer_capacity_samples",
			Help:      "Batch capacity negotiated by the last successful prepare",
		},
		[]string{"worker"},
	)

	m.activeWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "handoff",
		Name:      "workers",
		Help:      "Number of workers registered with the manager",
	})
}

// RecordBatch records one delivered batch.
func (m *HandoffMetrics) RecordBatch(worker string, size int, duration time.Duration) {
	m.batchesTotal.WithLabelValues(worker).Inc()
	m.batchSize.WithLabelValues(worker).Observe(float64(size))
	m.batchDuration.WithLabelValues(worker).Observe(duration.Seconds())
}

// RecordTaskError records a failed task run.
func (m *HandoffMetrics) RecordTaskError(worker, kind string) {
	m.taskErrors.WithLabelValues(worker, kind).Inc()
}

// RecordBacklog records a batch that finished after the next one had started filling.
func (m *HandoffMetrics) RecordBacklog(worker string, pending int) {
	m.backlogTotal.WithLabelValues(worker).Inc()
	m.backlogPending.WithLabelValues(worker).Set(float64(pending))
}

// SetWorkerState flips the state gauge so exactly one state label reads 1.
func (m *HandoffMetrics) SetWorkerState(worker string, state handoff.State) {
	for _, s := range []handoff.State{handoff.StateStopped, handoff.StatePreparing, handoff.StateRunning} {
		v := 0.0
		if s == state {
			v = 1
		}
		m.workerState.WithLabelValues(worker, s.String()).Set(v)
	}
}

// SetCapacity records the negotiated batch capacity.
func (m *HandoffMetrics) SetCapacity(worker string, capacity int) {
	m.capacity.WithLabelValues(worker).Set(float64(capacity))
}

// SetActiveWorkers records the number of registered workers.
func (m *HandoffMetrics) SetActiveWorkers(count int) {
	m.activeWorkers.Set(float64(count))
}

// Describe implements the prometheus.Collector interface.
func (m *HandoffMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.batchesTotal.Describe(ch)
	m.batchSize.Describe(ch)
	m.batchDuration.Describe(ch)
	m.taskErrors.Describe(ch)
	m.backlogTotal.Describe(ch)
	m.backlogPending.Describe(ch)
	m.workerState.Describe(ch)
	m.capacity.Describe(ch)
	m.activeWorkers.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *HandoffMetrics) Collect(ch chan<- prometheus.Metric) {
	m.batchesTotal.Collect(ch)
	m.batchSize.Collect(ch)
	m.batchDuration.Collect(ch)
	m.taskErrors.Collect(ch)
	m.backlogTotal.Collect(ch)
	m.backlogPending.Collect(ch)
	m.workerState.Collect(ch)
	m.capacity.Collect(ch)
	m.activeWorkers.Collect(ch)
}
