package handoff

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/shape"
)

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger used for registration and lifecycle events
func WithManagerLogger(l logger.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithManagerMetrics reports the number of registered workers
func WithManagerMetrics(r MetricsRecorder) ManagerOption {
	return func(m *Manager) {
		if r != nil {
			m.metrics = r
		}
	}
}

// Manager owns the workers fed by one producer. It remembers the last audio
// configuration and running intent and applies both to workers registered
// later.
type Manager struct {
	log     logger.Logger
	metrics MetricsRecorder

	// snapshot is replaced on every membership change so Write never locks
	snapshot atomic.Pointer[[]*Worker]

	mu              sync.Mutex
	workers         []*Worker
	prepared        bool
	sampleRate      float64
	blockSize       int
	shouldBeRunning bool
	closed          bool
}

// NewManager creates an empty manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		log:     logger.Global().Module(ComponentHandoff),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.Module("manager")
	m.publishLocked()
	return m
}

func (m *Manager) publishLocked() {
	snap := slices.Clone(m.workers)
	m.snapshot.Store(&snap)
	m.metrics.SetActiveWorkers(len(snap))
}

// Register adds w. If the manager has already been prepared, w is prepared
// with the same configuration and follows the current running intent.
func (m *Manager) Register(w *Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	if m.indexLocked(w.ID()) >= 0 {
		return errors.New(ErrWorkerExists).
			Component(ComponentHandoff).
			Context("worker", w.Name()).
			Context("worker_id", w.ID()).
			Build()
	}

	if m.prepared {
		if err := w.Prepare(m.sampleRate, m.blockSize); err != nil {
			return err
		}
	}
	w.SetShouldBeRunning(m.shouldBeRunning)

	m.workers = append(m.workers, w)
	m.publishLocked()

	m.log.Info("worker registered",
		logger.String("worker", w.Name()),
		logger.String("worker_id", w.ID()),
		logger.Int("workers", len(m.workers)))
	return nil
}

// Unregister stops the worker with the given id and removes it. The worker
// is not closed; the caller still owns it.
func (m *Manager) Unregister(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return errors.New(ErrWorkerNotFound).
			Component(ComponentHandoff).
			Context("worker_id", id).
			Build()
	}

	w := m.workers[i]
	m.workers = slices.Delete(m.workers, i, i+1)
	m.publishLocked()
	w.SetShouldBeRunning(false)

	m.log.Info("worker unregistered",
		logger.String("worker", w.Name()),
		logger.String("worker_id", id))
	return nil
}

func (m *Manager) indexLocked(id string) int {
	return slices.IndexFunc(m.workers, func(w *Worker) bool { return w.ID() == id })
}

// Prepare forwards the audio configuration to every worker and remembers
// it for later registrations. Failures are joined; the other workers are
// still prepared.
func (m *Manager) Prepare(sampleRate float64, blockSize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prepared = true
	m.sampleRate = sampleRate
	m.blockSize = blockSize

	var errs []error
	for _, w := range m.workers {
		if err := w.Prepare(sampleRate, blockSize); err != nil {
			m.log.Error("worker prepare failed",
				logger.String("worker", w.Name()),
				logger.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetShouldBeRunning forwards the running intent. Stopping happens in
// parallel and returns once every consumer goroutine has exited.
func (m *Manager) SetShouldBeRunning(shouldBeRunning bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shouldBeRunning = shouldBeRunning
	if shouldBeRunning {
		for _, w := range m.workers {
			w.SetShouldBeRunning(true)
		}
		return
	}

	var g errgroup.Group
	for _, w := range m.workers {
		g.Go(func() error {
			w.SetShouldBeRunning(false)
			return nil
		})
	}
	_ = g.Wait()
}

// Write fans p out to every registered worker. Producer only; lock-free.
func (m *Manager) Write(p shape.Point) {
	for _, w := range *m.snapshot.Load() {
		w.Write(p)
	}
}

// Workers returns the registered workers in registration order
func (m *Manager) Workers() []*Worker {
	return slices.Clone(*m.snapshot.Load())
}

// Get looks up a worker by id
func (m *Manager) Get(id string) (*Worker, bool) {
	for _, w := range *m.snapshot.Load() {
		if w.ID() == id {
			return w, true
		}
	}
	return nil, false
}

// Len returns the number of registered workers
func (m *Manager) Len() int {
	return len(*m.snapshot.Load())
}

// Close stops and closes every worker in parallel and rejects further
// registrations. It returns when all workers are closed or ctx is done,
// whichever comes first.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.shouldBeRunning = false
	workers := m.workers
	m.workers = nil
	m.publishLocked()
	m.mu.Unlock()

	var g errgroup.Group
	for _, w := range workers {
		g.Go(w.Close)
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		m.log.Info("all workers closed", logger.Int("workers", len(workers)))
		return nil
	case <-ctx.Done():
		return errors.New(ctx.Err()).
			Component(ComponentHandoff).
			Category(errors.CategoryTimeout).
			Context("operation", "close").
			Context("workers", len(workers)).
			Build()
	}
}
