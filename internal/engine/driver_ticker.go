package engine

import (
	"sync"
	"time"
)

// TickerDriver paces blocks from a wall clock without an audio device.
// Output is discarded; only the workers see the samples.
type TickerDriver struct {
	sampleRate float64
	blockSize  int
	channels   int

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewTickerDriver returns a driver emitting blockSize frames every
// blockSize/sampleRate seconds.
func NewTickerDriver(sampleRate float64, blockSize, channels int) *TickerDriver {
	return &TickerDriver{sampleRate: sampleRate, blockSize: blockSize, channels: max(1, channels)}
}

func (d *TickerDriver) SampleRate() float64 { return d.sampleRate }
func (d *TickerDriver) BlockSize() int      { return d.blockSize }

// Period is the wall-clock duration of one block.
func (d *TickerDriver) Period() time.Duration {
	return time.Duration(float64(d.blockSize) / d.sampleRate * float64(time.Second))
}

// Start launches the clock goroutine.
func (d *TickerDriver) Start(p Processor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.loop(p, d.stop, d.done)
	return nil
}

func (d *TickerDriver) loop(p Processor, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	out := make([]float32, d.blockSize*d.channels)
	ticker := time.NewTicker(max(d.Period(), time.Microsecond))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.Process(out, d.channels, d.blockSize)
		}
	}
}

// Stop halts the clock and waits for the current block to finish.
func (d *TickerDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	<-d.done
	d.stop, d.done = nil, nil
	return nil
}
