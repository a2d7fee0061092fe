package handoff

import (
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/shape"
)

const waitTimeout = 2 * time.Second

// collectTask copies every batch onto a channel
type collectTask struct {
	mu        sync.Mutex
	capacity  int
	prepares  []float64
	batches   chan []shape.Point
	closed    atomic.Bool
	closeErr  error
	prepareFn func(sampleRate float64, blockSize int) (int, error)
}

func newCollectTask(capacity int) *collectTask {
	return &collectTask{capacity: capacity, batches: make(chan []shape.Point, 64)}
}

func (c *collectTask) Prepare(sampleRate float64, blockSize int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepares = append(c.prepares, sampleRate)
	if c.prepareFn != nil {
		return c.prepareFn(sampleRate, blockSize)
	}
	return c.capacity, nil
}

func (c *collectTask) setCapacity(capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capacity = capacity
}

func (c *collectTask) prepareCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prepares)
}

func (c *collectTask) Run(batch []shape.Point) error {
	c.batches <- slices.Clone(batch)
	return nil
}

func (c *collectTask) Close() error {
	c.closed.Store(true)
	return c.closeErr
}

func (c *collectTask) next(t *testing.T) []shape.Point {
	t.Helper()
	select {
	case b := <-c.batches:
		return b
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

func (c *collectTask) expectNone(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case b := <-c.batches:
		t.Fatalf("unexpected batch %v", b)
	case <-time.After(within):
	}
}

func testLogger() logger.Logger {
	return logger.NewDiscardLogger()
}

func newTestWorker(t *testing.T, name string, task Task, opts ...WorkerOption) *Worker {
	t.Helper()
	opts = append([]WorkerOption{WithLogger(testLogger())}, opts...)
	w, err := NewWorker(name, task, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func writeN(w interface{ Write(shape.Point) }, n int, p shape.Point) {
	for range n {
		w.Write(p)
	}
}

// fakeMetrics records calls for assertions
type fakeMetrics struct {
	mu         sync.Mutex
	batches    map[string]int
	errors     map[string]int
	backlog    map[string]int
	states     map[string]State
	capacities map[string]int
	active     int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		batches:    map[string]int{},
		errors:     map[string]int{},
		backlog:    map[string]int{},
		states:     map[string]State{},
		capacities: map[string]int{},
	}
}

func (f *fakeMetrics) RecordBatch(worker string, _ int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches[worker]++
}

func (f *fakeMetrics) RecordTaskError(worker, kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[worker+"/"+kind]++
}

func (f *fakeMetrics) RecordBacklog(worker string, _ int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backlog[worker]++
}

func (f *fakeMetrics) SetWorkerState(worker string, state State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[worker] = state
}

func (f *fakeMetrics) SetCapacity(worker string, capacity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capacities[worker] = capacity
}

func (f *fakeMetrics) SetActiveWorkers(count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = count
}

func (f *fakeMetrics) get(fn func(*fakeMetrics) int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f)
}
