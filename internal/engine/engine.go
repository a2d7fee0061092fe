// Package engine owns the real-time producer: it pulls samples from a shape
// generator on the audio callback and hands them to background workers
// through a handoff.Manager.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/handoff"
	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/shape"
)

const (
	componentEngine = "engine"

	// full scale for device samples
	outputLimit = 1.0

	// DefaultShutdownTimeout bounds worker shutdown at the end of Run.
	DefaultShutdownTimeout = 5 * time.Second
)

// Processor renders one audio block. Drivers call it from their callback.
type Processor interface {
	Process(out []float32, channels, frames int)
}

// Driver paces the producer.
type Driver interface {
	// SampleRate and BlockSize describe the stream the driver will request.
	SampleRate() float64
	BlockSize() int
	// Start begins calling p.Process and returns once the stream is running.
	Start(p Processor) error
	// Stop halts the stream. No Process call is in flight after it returns.
	Stop() error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithManagerOptions forwards options to the owned handoff.Manager.
func WithManagerOptions(opts ...handoff.ManagerOption) Option {
	return func(e *Engine) { e.managerOpts = append(e.managerOpts, opts...) }
}

// WithShutdownTimeout bounds how long Run waits for workers to close.
func WithShutdownTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.shutdownTimeout = d
		}
	}
}

// Engine is the root object. It owns the Manager for its whole lifetime.
type Engine struct {
	log             logger.Logger
	managerOpts     []handoff.ManagerOption
	shutdownTimeout time.Duration
	manager         *handoff.Manager
	gen             shape.Generator

	// mu is held by reconfiguration; Process only ever TryLocks it
	mu         sync.Mutex
	sampleRate float64
	blockSize  int

	frames        atomic.Uint64
	skippedBlocks atomic.Uint64
}

// New creates an engine and its Manager around gen.
func New(gen shape.Generator, opts ...Option) *Engine {
	e := &Engine{
		log:             logger.Global().Module(componentEngine),
		shutdownTimeout: DefaultShutdownTimeout,
		gen:             gen,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.manager = handoff.NewManager(append([]handoff.ManagerOption{
		handoff.WithManagerLogger(e.log),
	}, e.managerOpts...)...)
	return e
}

// Manager returns the owned worker manager.
func (e *Engine) Manager() *handoff.Manager {
	return e.manager
}

// Prepare reconfigures the generator and every worker. Audio callbacks that
// arrive meanwhile output silence.
func (e *Engine) Prepare(sampleRate float64, blockSize int) error {
	if sampleRate <= 0 || blockSize < 1 {
		return errors.Newf("invalid stream configuration").
			Component(componentEngine).
			Category(errors.CategoryValidation).
			Context("sample_rate", sampleRate).
			Context("block_size", blockSize).
			Build()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.sampleRate = sampleRate
	e.blockSize = blockSize
	e.gen.SetSampleRate(sampleRate)

	e.log.Info("preparing stream",
		logger.Float64("sample_rate", sampleRate),
		logger.Int("block_size", blockSize),
		logger.Int("workers", e.manager.Len()))
	return e.manager.Prepare(sampleRate, blockSize)
}

// Process generates frames samples, hands each to the workers and writes X
// and Y (and Z on a third channel) interleaved into out when it is non-nil.
// Device samples are clipped to full scale; workers see the raw points.
// It never blocks: during reconfiguration the block is silent.
func (e *Engine) Process(out []float32, channels, frames int) {
	if !e.mu.TryLock() {
		clear(out)
		e.skippedBlocks.Add(1)
		return
	}
	defer e.mu.Unlock()

	for i := range frames {
		p := e.gen.Next()
		e.manager.Write(p)

		if out == nil || channels < 1 {
			continue
		}
		q := p.Clamp(outputLimit)
		frame := out[i*channels : (i+1)*channels]
		frame[0] = float32(q.X)
		if channels > 1 {
			frame[1] = float32(q.Y)
		}
		if channels > 2 {
			frame[2] = float32(q.Z)
			clear(frame[3:])
		}
	}
	e.frames.Add(uint64(frames))
}

// Frames returns the number of frames generated so far.
func (e *Engine) Frames() uint64 { return e.frames.Load() }

// SkippedBlocks returns the number of callbacks silenced by reconfiguration.
func (e *Engine) SkippedBlocks() uint64 { return e.skippedBlocks.Load() }

// Run prepares the workers for the driver's stream, starts them and the
// driver, and blocks until ctx is done. It then stops the driver, stops the
// workers and closes the manager.
func (e *Engine) Run(ctx context.Context, driver Driver) error {
	if err := e.Prepare(driver.SampleRate(), driver.BlockSize()); err != nil {
		// workers that failed stay unprepared and ignore writes
		e.log.Warn("some workers failed to prepare", logger.Error(err))
	}
	e.manager.SetShouldBeRunning(true)

	if err := driver.Start(e); err != nil {
		e.manager.SetShouldBeRunning(false)
		return errors.Join(err, e.closeManager())
	}
	e.log.Info("engine running")

	<-ctx.Done()
	e.log.Info("engine stopping", logger.Uint64("frames", e.Frames()))

	driverErr := driver.Stop()

	e.manager.SetShouldBeRunning(false)
	return errors.Join(driverErr, e.closeManager())
}

func (e *Engine) closeManager() error {
	ctx, cancel := context.WithTimeout(context.Background(), e.shutdownTimeout)
	defer cancel()
	return e.manager.Close(ctx)
}
