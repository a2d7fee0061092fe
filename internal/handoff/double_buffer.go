package handoff

import (
	"sync"

	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/shape"
)

// DoubleBuffer hands fixed-size batches from one producer to one consumer.
//
// The producer calls Write; the consumer calls WaitUntilFull and then
// GetBuffer. See the package documentation for the overwrite window.
type DoubleBuffer struct {
	buffers  [2][]shape.Point
	capacity int
	full     *Semaphore

	// mu guards writes of active by the producer and all reads by the
	// consumer. The producer reads active without it since it is the only writer.
	mu     sync.Mutex
	active int

	// producer only
	offset int
}

// NewDoubleBuffer allocates both buffers up front
func NewDoubleBuffer(capacity int) (*DoubleBuffer, error) {
	if capacity < 1 {
		return nil, errors.New(ErrInvalidCapacity).
			Component(ComponentHandoff).
			Context("capacity", capacity).
			Build()
	}

	return &DoubleBuffer{
		buffers:  [2][]shape.Point{make([]shape.Point, capacity), make([]shape.Point, capacity)},
		capacity: capacity,
		full:     NewSemaphore(0),
	}, nil
}

// Write stores p in the active buffer. When that fills, the buffers swap
// and one waiter is notified. Producer only.
func (db *DoubleBuffer) Write(p shape.Point) {
	db.buffers[db.active][db.offset] = p
	db.offset++
	if db.offset < db.capacity {
		return
	}

	db.mu.Lock()
	db.active ^= 1
	db.mu.Unlock()

	db.offset = 0
	db.full.Release()
}

// GetBuffer returns the buffer the producer is not writing to. The
// returned slice is shared with the producer and is only stable until the
// producer fills the other buffer.
func (db *DoubleBuffer) GetBuffer() []shape.Point {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.buffers[db.active^1]
}

// WaitUntilFull blocks until a buffer has been filled since the last call,
// or until ForceNotify.
func (db *DoubleBuffer) WaitUntilFull() {
	db.full.Acquire()
}

// ForceNotify wakes a waiter without a full buffer. Used on shutdown only.
func (db *DoubleBuffer) ForceNotify() {
	db.full.Release()
}

// Capacity is the length of each buffer
func (db *DoubleBuffer) Capacity() int {
	return db.capacity
}

// Pending is the number of notifications not yet consumed. Above zero
// right after a consumer finished a batch means it is falling behind.
func (db *DoubleBuffer) Pending() int {
	return db.full.Available()
}

// drainNotifications discards stale notifications, e.g. from ForceNotify,
// before a new consumer starts waiting.
func (db *DoubleBuffer) drainNotifications() int {
	n := 0
	for db.full.TryAcquire() {
		n++
	}
	return n
}
