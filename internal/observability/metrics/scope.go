package metrics

import "github.com/prometheus/client_golang/prometheus"

// ScopeMetrics tracks the websocket scope broadcaster.
type ScopeMetrics struct {
	clients       prometheus.Gauge
	framesSent    prometheus.Counter
	framesDropped prometheus.Counter
	frameSize     prometheus.Histogram
}

// NewScopeMetrics creates and registers the scope metrics.
func NewScopeMetrics(registry prometheus.Registerer) (*ScopeMetrics, error) {
	m := &ScopeMetrics{
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "scope",
			Name:      "clients",
			Help:      "Number of connected scope clients",
		}),
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "scope",
			Name:      "frames_sent_total",
			Help:      "Total number of frames written to clients",
		}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "scope",
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped because a client queue was full",
		}),
		frameSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "scope",
			Name:      "frame_size_bytes",
			Help:      "Size of encoded scope frames",
			Buckets:   prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount12),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetClients records the number of connected clients.
func (m *ScopeMetrics) SetClients(n int) { m.clients.Set(float64(n)) }

// RecordFrame records a frame broadcast to clients.
func (m *ScopeMetrics) RecordFrame(sizeBytes, delivered, dropped int) {
	m.frameSize.Observe(float64(sizeBytes))
	m.framesSent.Add(float64(delivered))
	m.framesDropped.Add(float64(dropped))
}

// Describe implements the prometheus.Collector interface.
func (m *ScopeMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.clients.Desc()
	ch <- m.framesSent.Desc()
	ch <- m.framesDropped.Desc()
	ch <- m.frameSize.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *ScopeMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.clients
	ch <- m.framesSent
	ch <- m.framesDropped
	ch <- m.frameSize
}
