package handoff

import (
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/shape"
)

// Defaults for worker options
const (
	DefaultStopWarnTimeout  = 2 * time.Second
	DefaultErrorLogInterval = 5 * time.Second
)

// State is the lifecycle state of a Worker
type State int32

const (
	StateStopped State = iota
	StatePreparing
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePreparing:
		return "preparing"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// MarshalText renders the state name in JSON and logs
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateStopped, StatePreparing, StateRunning} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown worker state %q", text)
}

// Stats is a point-in-time view of a worker's counters
type Stats struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	State            State  `json:"state"`
	Capacity         int    `json:"capacity"`
	Pending          int    `json:"pending"`
	Batches          uint64 `json:"batches"`
	TaskErrors       uint64 `json:"task_errors"`
	TaskPanics       uint64 `json:"task_panics"`
	UnpreparedWrites uint64 `json:"unprepared_writes"`
	IdleWrites       uint64 `json:"idle_writes"`
	BacklogEvents    uint64 `json:"backlog_events"`
}

// WorkerOption configures a Worker
type WorkerOption func(*Worker)

// WithLogger sets the parent logger; the worker logs under its "worker" submodule
func WithLogger(l logger.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.log = l
		}
	}
}

// WithMetrics attaches a metrics recorder
func WithMetrics(m MetricsRecorder) WorkerOption {
	return func(w *Worker) {
		if m != nil {
			w.metrics = m
		}
	}
}

// WithStopWarnTimeout sets how long a stop may take before a warning is logged
func WithStopWarnTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.stopWarnTimeout = d
		}
	}
}

// WithErrorLogInterval sets the minimum spacing between logged task failures
func WithErrorLogInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.errLimiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithID overrides the generated worker id
func WithID(id string) WorkerOption {
	return func(w *Worker) {
		if id != "" {
			w.id = id
		}
	}
}

// loop is one run of the consumer goroutine
type loop struct {
	db   *DoubleBuffer
	stop atomic.Bool
	done chan struct{}
}

// Worker runs a Task on its own goroutine, fed by a DoubleBuffer.
//
// The running intent (SetShouldBeRunning) and the prepared state are
// independent: a worker told to run before its first Prepare starts as soon
// as Prepare succeeds.
type Worker struct {
	id              string
	name            string
	task            Task
	log             logger.Logger
	metrics         MetricsRecorder
	stopWarnTimeout time.Duration
	errLimiter      *rate.Limiter

	// read by Write
	consumer atomic.Pointer[DoubleBuffer]
	prepared atomic.Bool
	running  atomic.Bool

	state atomic.Int32

	// mu serializes control operations
	mu              sync.Mutex
	shouldBeRunning bool
	closed          bool
	current         *loop

	batches          atomic.Uint64
	taskErrors       atomic.Uint64
	taskPanics       atomic.Uint64
	unpreparedWrites atomic.Uint64
	idleWrites       atomic.Uint64
	backlogEvents    atomic.Uint64
	suppressedErrors atomic.Uint64
}

// NewWorker creates a stopped, unprepared worker
func NewWorker(name string, task Task, opts ...WorkerOption) (*Worker, error) {
	if task == nil {
		return nil, errors.New(ErrNilTask).
			Component(ComponentHandoff).
			Context("worker", name).
			Build()
	}

	w := &Worker{
		id:              uuid.NewString(),
		name:            name,
		task:            task,
		log:             logger.Global().Module(ComponentHandoff),
		metrics:         noopMetrics{},
		stopWarnTimeout: DefaultStopWarnTimeout,
		errLimiter:      rate.NewLimiter(rate.Every(DefaultErrorLogInterval), 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.Module("worker").With(logger.String("worker", name), logger.String("worker_id", w.id))

	return w, nil
}

// ID returns the unique worker id
func (w *Worker) ID() string { return w.id }

// Name returns the human-readable worker name
func (w *Worker) Name() string { return w.name }

// State returns the current lifecycle state
func (w *Worker) State() State { return State(w.state.Load()) }

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
	w.metrics.SetWorkerState(w.name, s)
}

// Prepare asks the task for its batch size and installs a fresh buffer
// pair when that size changed, discarding any partially filled batch. If
// the worker was running the consumer goroutine is stopped for the duration
// and started again afterwards, so Task.Prepare never overlaps Task.Run.
func (w *Worker) Prepare(sampleRate float64, blockSize int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWorkerClosed
	}

	w.stopLocked()
	w.setState(StatePreparing)

	capacity, err := w.task.Prepare(sampleRate, blockSize)
	if err == nil && capacity < 1 {
		err = ErrInvalidCapacity
	}
	if err != nil {
		// keep the previous buffer so a failed reconfiguration does not
		// silence a worker that was running
		w.restoreLocked()
		return errors.New(err).
			Component(ComponentHandoff).
			Category(errors.CategoryWorker).
			Context("operation", "prepare").
			Context("worker", w.name).
			Context("sample_rate", sampleRate).
			Context("block_size", blockSize).
			Context("capacity", capacity).
			Build()
	}

	// an unchanged capacity keeps the buffers and any partial batch
	if !w.prepared.Load() || w.consumer.Load().Capacity() != capacity {
		db, err := NewDoubleBuffer(capacity)
		if err != nil {
			w.restoreLocked()
			return err
		}
		w.consumer.Store(db)
		w.prepared.Store(true)
		w.metrics.SetCapacity(w.name, capacity)
	}

	w.log.Debug("worker prepared",
		logger.Float64("sample_rate", sampleRate),
		logger.Int("block_size", blockSize),
		logger.Int("capacity", capacity))

	w.restoreLocked()
	return nil
}

// restoreLocked brings the loop back in line with the running intent
func (w *Worker) restoreLocked() {
	if w.shouldBeRunning && w.prepared.Load() {
		w.startLocked()
		return
	}
	w.setState(StateStopped)
}

// SetShouldBeRunning records the running intent. true starts the consumer
// goroutine once the worker is prepared; false stops it and waits for it to
// exit. Both directions are idempotent.
func (w *Worker) SetShouldBeRunning(shouldBeRunning bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	w.shouldBeRunning = shouldBeRunning
	if shouldBeRunning {
		if !w.prepared.Load() {
			w.log.Debug("run requested before prepare, deferring start")
			return
		}
		w.startLocked()
		return
	}
	w.stopLocked()
}

func (w *Worker) startLocked() {
	if w.current != nil {
		return
	}

	db := w.consumer.Load()
	if stale := db.drainNotifications(); stale > 0 {
		w.log.Trace("discarded stale notifications", logger.Int("count", stale))
	}

	l := &loop{db: db, done: make(chan struct{})}
	w.current = l
	w.running.Store(true)
	w.setState(StateRunning)

	go w.run(l)
}

func (w *Worker) stopLocked() {
	l := w.current
	if l == nil {
		return
	}

	w.running.Store(false)
	l.stop.Store(true)
	l.db.ForceNotify()

	timer := time.NewTimer(w.stopWarnTimeout)
	defer timer.Stop()

	select {
	case <-l.done:
	case <-timer.C:
		w.log.Warn("worker slow to stop, waiting for task to return",
			logger.Duration("waited", w.stopWarnTimeout))
		<-l.done
	}

	w.current = nil
	w.setState(StateStopped)
}

// run is the consumer goroutine
func (w *Worker) run(l *loop) {
	defer close(l.done)

	for {
		l.db.WaitUntilFull()
		if l.stop.Load() {
			return
		}

		w.runTask(l.db.GetBuffer())

		// Another buffer filled while the task ran
		if pending := l.db.Pending(); pending > 0 && !l.stop.Load() {
			w.backlogEvents.Add(1)
			w.metrics.RecordBacklog(w.name, pending)
		}
	}
}

// runTask calls Task.Run, converting errors and panics into counted,
// rate-limited log entries so a failing sink cannot stop the loop
func (w *Worker) runTask(batch []shape.Point) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			w.taskPanics.Add(1)
			w.metrics.RecordTaskError(w.name, TaskErrorPanic)
			w.reportTaskFailure(func() error {
				return errors.Newf("task panic: %v", r).
					Component(ComponentHandoff).
					Category(errors.CategoryTask).
					Priority(errors.PriorityHigh).
					Context("worker", w.name).
					Context("stack", string(debug.Stack())).
					Build()
			})
		}
	}()

	if err := w.task.Run(batch); err != nil {
		w.taskErrors.Add(1)
		w.metrics.RecordTaskError(w.name, TaskErrorReturned)
		w.reportTaskFailure(func() error {
			return errors.New(err).
				Component(ComponentHandoff).
				Category(errors.CategoryTask).
				Context("worker", w.name).
				Context("batch_size", len(batch)).
				Build()
		})
		return
	}

	w.batches.Add(1)
	w.metrics.RecordBatch(w.name, len(batch), time.Since(start))
}

// reportTaskFailure logs one failure per limiter interval. build is only
// called when the limiter allows it, since Build also reports to telemetry.
func (w *Worker) reportTaskFailure(build func() error) {
	if !w.errLimiter.Allow() {
		w.suppressedErrors.Add(1)
		return
	}
	w.log.Error("task failed",
		logger.Error(build()),
		logger.Uint64("suppressed", w.suppressedErrors.Swap(0)))
}

// Write forwards one sample to the consumer buffer. It never blocks or
// allocates. Samples written before the first Prepare or while stopped are
// dropped and counted.
func (w *Worker) Write(p shape.Point) {
	if !w.prepared.Load() {
		w.unpreparedWrites.Add(1)
		onUnpreparedWrite(w.name)
		return
	}
	if !w.running.Load() {
		w.idleWrites.Add(1)
		return
	}
	w.consumer.Load().Write(p)
}

// Stats returns a snapshot of the worker counters
func (w *Worker) Stats() Stats {
	s := Stats{
		ID:               w.id,
		Name:             w.name,
		State:            w.State(),
		Batches:          w.batches.Load(),
		TaskErrors:       w.taskErrors.Load(),
		TaskPanics:       w.taskPanics.Load(),
		UnpreparedWrites: w.unpreparedWrites.Load(),
		IdleWrites:       w.idleWrites.Load(),
		BacklogEvents:    w.backlogEvents.Load(),
	}
	if db := w.consumer.Load(); db != nil {
		s.Capacity = db.Capacity()
		s.Pending = db.Pending()
	}
	return s
}

// Close stops the worker for good and closes the task if it is an io.Closer
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.shouldBeRunning = false
	w.stopLocked()
	w.closed = true

	if closer, ok := w.task.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return errors.New(err).
				Component(ComponentHandoff).
				Category(errors.CategoryWorker).
				Context("operation", "close").
				Context("worker", w.name).
				Build()
		}
	}
	return nil
}
