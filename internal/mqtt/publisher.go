package mqtt

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/shape"
)

// BatchSummary is the JSON document published for a batch.
type BatchSummary struct {
	Source     string      `json:"source"`
	Sequence   uint64      `json:"sequence"`
	Samples    int         `json:"samples"`
	SampleRate float64     `json:"sample_rate"`
	Centroid   shape.Point `json:"centroid"`
	Peak       float64     `json:"peak"`
	RMS        float64     `json:"rms"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Summarize reduces a batch to its centroid and the peak and RMS distance
// from the origin in the XY plane.
func Summarize(batch []shape.Point) (centroid shape.Point, peak, rms float64) {
	if len(batch) == 0 {
		return shape.Point{}, 0, 0
	}
	var sumSq float64
	for _, p := range batch {
		centroid.X += p.X
		centroid.Y += p.Y
		centroid.Z += p.Z
		m := math.Hypot(p.X, p.Y)
		peak = max(peak, m)
		sumSq += m * m
	}
	n := float64(len(batch))
	centroid = shape.Point{X: centroid.X / n, Y: centroid.Y / n, Z: centroid.Z / n}
	return centroid, peak, math.Sqrt(sumSq / n)
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublisherLogger sets the publisher logger.
func WithPublisherLogger(l logger.Logger) PublisherOption {
	return func(p *Publisher) { p.log = l }
}

// WithPublisherClock overrides the time source for summary timestamps.
func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) { p.now = now }
}

// Publisher is a handoff task publishing a BatchSummary every N batches.
type Publisher struct {
	client Client
	config Config
	every  int
	log    logger.Logger
	now    func() time.Time

	mu         sync.Mutex
	sampleRate float64
	batches    uint64
	sequence   uint64
}

// NewPublisher returns a publisher sending one summary per every batches.
func NewPublisher(client Client, cfg Config, every int, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		client: client,
		config: cfg,
		every:  max(1, every),
		log:    logger.Global().Module(componentMQTT),
		now:    time.Now,
	}
	if p.config.PublishTimeout <= 0 {
		p.config.PublishTimeout = DefaultConfig().PublishTimeout
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect connects the underlying client.
func (p *Publisher) Connect(ctx context.Context) error {
	return p.client.Connect(ctx)
}

// Prepare keeps batches at one audio block.
func (p *Publisher) Prepare(sampleRate float64, blockSize int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sampleRate = sampleRate
	return blockSize, nil
}

// Run publishes a summary on every Nth batch. Publish failures are
// returned so the worker counts and logs them.
func (p *Publisher) Run(batch []shape.Point) error {
	p.mu.Lock()
	p.batches++
	if p.batches%uint64(p.every) != 0 {
		p.mu.Unlock()
		return nil
	}
	p.sequence++
	summary := BatchSummary{
		Source:     p.config.ClientID,
		Sequence:   p.sequence,
		Samples:    len(batch),
		SampleRate: p.sampleRate,
		Timestamp:  p.now().UTC(),
	}
	p.mu.Unlock()

	summary.Centroid, summary.Peak, summary.RMS = Summarize(batch)

	payload, err := json.Marshal(summary)
	if err != nil {
		return errors.New(err).
			Component(componentMQTT).
			Category(errors.CategoryMQTTPublish).
			Context("operation", "marshal_summary").
			Build()
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()
	return p.client.Publish(ctx, p.config.Topic, payload)
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	p.client.Disconnect()
	p.log.Debug("publisher closed", logger.String("topic", p.config.Topic))
	return nil
}
