package metrics

import "github.com/prometheus/client_golang/prometheus"

// RecorderMetrics tracks the WAV capture worker.
type RecorderMetrics struct {
	filesTotal   prometheus.Counter
	framesTotal  prometheus.Counter
	bytesTotal   prometheus.Counter
	errorsTotal  *prometheus.CounterVec
	openDuration prometheus.Gauge
}

// NewRecorderMetrics creates and registers the recorder metrics.
func NewRecorderMetrics(registry prometheus.Registerer) (*RecorderMetrics, error) {
	m := &RecorderMetrics{
		filesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "recorder",
			Name:      "files_total",
			Help:      "Total number of WAV files opened",
		}),
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "recorder",
			Name:      "frames_total",
			Help:      "Total number of sample frames written",
		}),
		bytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "recorder",
			Name:      "bytes_total",
			Help:      "Total number of PCM bytes written",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "recorder",
			Name:      "errors_total",
			Help:      "Total number of recorder failures",
		}, []string{"operation"}), // operation: open, write, close
		openDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "recorder",
			Name:      "file_duration_seconds",
			Help:      "Audio duration held by the currently open file",
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordFileOpened counts a new output file and resets the duration gauge.
func (m *RecorderMetrics) RecordFileOpened() {
	m.filesTotal.Inc()
	m.openDuration.Set(0)
}

// RecordWrite records frames appended to the current file.
func (m *RecorderMetrics) RecordWrite(frames, bytes int, sampleRate float64) {
	m.framesTotal.Add(float64(frames))
	m.bytesTotal.Add(float64(bytes))
	if sampleRate > 0 {
		m.openDuration.Add(float64(frames) / sampleRate)
	}
}

// RecordError counts a failed recorder operation.
func (m *RecorderMetrics) RecordError(operation string) {
	m.errorsTotal.WithLabelValues(operation).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *RecorderMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.filesTotal.Desc()
	ch <- m.framesTotal.Desc()
	ch <- m.bytesTotal.Desc()
	m.errorsTotal.Describe(ch)
	ch <- m.openDuration.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *RecorderMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.filesTotal
	ch <- m.framesTotal
	ch <- m.bytesTotal
	m.errorsTotal.Collect(ch)
	ch <- m.openDuration
}
