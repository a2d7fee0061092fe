package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osci-render/osci-go/internal/conf"
	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/handoff"
	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/shape"
	"github.com/osci-render/osci-go/internal/testutil"
)

// rampGenerator emits (n, -n, n/10) for the nth sample.
type rampGenerator struct {
	mu         sync.Mutex
	n          float64
	sampleRate float64
}

func (g *rampGenerator) Next() shape.Point {
	g.n++
	return shape.Point{X: g.n, Y: -g.n, Z: g.n / 10}
}

func (g *rampGenerator) SetSampleRate(sampleRate float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sampleRate = sampleRate
}

func (g *rampGenerator) rate() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sampleRate
}

// collector records every batch it is handed.
type collector struct {
	mu      sync.Mutex
	batches [][]shape.Point
}

func (c *collector) task() handoff.TaskFuncs {
	return handoff.TaskFuncs{
		RunFunc: func(batch []shape.Point) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.batches = append(c.batches, append([]shape.Point(nil), batch...))
			return nil
		},
	}
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func (c *collector) first() []shape.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.batches) == 0 {
		return nil
	}
	return c.batches[0]
}

// manualDriver calls Process only when the test asks it to.
type manualDriver struct {
	sampleRate float64
	blockSize  int
	startErr   error

	mu      sync.Mutex
	p       Processor
	stopped bool
}

func (d *manualDriver) SampleRate() float64 { return d.sampleRate }
func (d *manualDriver) BlockSize() int      { return d.blockSize }

func (d *manualDriver) Start(p Processor) error {
	if d.startErr != nil {
		return d.startErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.p = p
	return nil
}

func (d *manualDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func (d *manualDriver) started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.p != nil
}

func newTestEngine(t *testing.T, gen shape.Generator) *Engine {
	t.Helper()
	e := New(gen, WithLogger(logger.NewDiscardLogger()), WithShutdownTimeout(time.Second))
	t.Cleanup(func() { _ = e.Manager().Close(context.Background()) })
	return e
}

func TestPrepareValidation(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &rampGenerator{})

	tests := []struct {
		name       string
		sampleRate float64
		blockSize  int
	}{
		{"zero sample rate", 0, 256},
		{"negative sample rate", -1, 256},
		{"zero block size", 48000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Prepare(tt.sampleRate, tt.blockSize)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}

func TestPrepareConfiguresGenerator(t *testing.T) {
	t.Parallel()

	gen := &rampGenerator{}
	e := newTestEngine(t, gen)
	require.NoError(t, e.Prepare(44100, 128))
	assert.InDelta(t, 44100, gen.rate(), 0)
}

func TestProcessInterleavesChannels(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &rampGenerator{})

	// X and Y pass full scale after the first sample and are clipped
	stereo := make([]float32, 4)
	e.Process(stereo, 2, 2)
	assert.Equal(t, []float32{1, -1, 1, -1}, stereo)

	quad := []float32{9, 9, 9, 9, 9, 9, 9, 9}
	e.Process(quad, 4, 2)
	assert.Equal(t, []float32{1, -1, 0.3, 0, 1, -1, 0.4, 0}, quad)

	mono := make([]float32, 2)
	e.Process(mono, 1, 2)
	assert.Equal(t, []float32{1, 1}, mono)

	// nil output still advances the generator
	e.Process(nil, 2, 3)
	assert.Equal(t, uint64(9), e.Frames())
	assert.Zero(t, e.SkippedBlocks())
}

func TestProcessIsSilentDuringReconfiguration(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &rampGenerator{})

	e.mu.Lock()
	out := []float32{1, 1, 1, 1}
	e.Process(out, 2, 2)
	e.mu.Unlock()

	assert.Equal(t, []float32{0, 0, 0, 0}, out)
	assert.Equal(t, uint64(1), e.SkippedBlocks())
	assert.Zero(t, e.Frames())
}

func TestProcessFeedsWorkers(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &rampGenerator{})
	c := &collector{}
	w, err := handoff.NewWorker("collect", c.task(), handoff.WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)
	require.NoError(t, e.Manager().Register(w))

	require.NoError(t, e.Prepare(48000, 3))
	e.Manager().SetShouldBeRunning(true)

	e.Process(nil, 2, 3)

	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, time.Millisecond)
	// unclipped
	assert.Equal(t, []shape.Point{
		{X: 1, Y: -1, Z: 0.1},
		{X: 2, Y: -2, Z: 0.2},
		{X: 3, Y: -3, Z: 0.3},
	}, c.first())
}

func TestRunWithManualDriver(t *testing.T) {
	t.Parallel()

	gen := &rampGenerator{}
	e := New(gen, WithLogger(logger.NewDiscardLogger()))
	c := &collector{}
	w, err := handoff.NewWorker("collect", c.task(), handoff.WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)
	require.NoError(t, e.Manager().Register(w))

	driver := &manualDriver{sampleRate: 48000, blockSize: 4}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, driver) }()

	require.Eventually(t, driver.started, time.Second, time.Millisecond)
	assert.Equal(t, handoff.StateRunning, w.State())
	assert.InDelta(t, 48000, gen.rate(), 0)

	driver.p.Process(make([]float32, 8), 2, 4)
	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, testutil.WaitForResult(t, done, testutil.DefaultTestTimeout, "Run did not return after cancel"))

	assert.True(t, driver.stopped)
	assert.Equal(t, handoff.StateStopped, w.State())
	assert.Zero(t, e.Manager().Len())
}

func TestRunDriverStartFailure(t *testing.T) {
	t.Parallel()

	e := New(&rampGenerator{}, WithLogger(logger.NewDiscardLogger()))
	startErr := errors.NewStd("device busy")

	err := e.Run(context.Background(), &manualDriver{sampleRate: 48000, blockSize: 4, startErr: startErr})
	require.ErrorIs(t, err, startErr)
	assert.Zero(t, e.Manager().Len())
}

func TestRunWithTickerDriver(t *testing.T) {
	t.Parallel()

	e := New(shape.NewLissajous(shape.LissajousConfig{FrequencyX: 1, FrequencyY: 2, Amplitude: 1}, 8000),
		WithLogger(logger.NewDiscardLogger()))
	c := &collector{}
	w, err := handoff.NewWorker("collect", c.task(), handoff.WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)
	require.NoError(t, e.Manager().Register(w))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, NewTickerDriver(8000, 16, 2)) }()

	require.Eventually(t, func() bool { return c.count() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, testutil.WaitForResult(t, done, testutil.DefaultTestTimeout, "Run did not return after cancel"))

	assert.Len(t, c.first(), 16)
	assert.GreaterOrEqual(t, e.Frames(), uint64(48))
}

func TestTickerDriverStopIsIdempotent(t *testing.T) {
	t.Parallel()

	d := NewTickerDriver(48000, 480, 2)
	assert.Equal(t, 10*time.Millisecond, d.Period())
	require.NoError(t, d.Stop())

	e := newTestEngine(t, &rampGenerator{})
	require.NoError(t, d.Start(e))
	require.NoError(t, d.Start(e))
	require.NoError(t, d.Stop())
	require.NoError(t, d.Stop())
}

func TestNewDriver(t *testing.T) {
	t.Parallel()

	d, err := NewDriver(&conf.AudioSettings{Driver: conf.DriverTicker, SampleRate: 48000, BlockSize: 256, Channels: 2}, nil)
	require.NoError(t, err)
	assert.IsType(t, &TickerDriver{}, d)
	assert.Equal(t, 256, d.BlockSize())

	d, err = NewDriver(&conf.AudioSettings{Driver: conf.DriverMalgo, SampleRate: 44100, BlockSize: 512}, logger.NewDiscardLogger())
	require.NoError(t, err)
	assert.IsType(t, &MalgoDriver{}, d)
	assert.InDelta(t, 44100, d.SampleRate(), 0)

	_, err = NewDriver(&conf.AudioSettings{Driver: "jack"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
