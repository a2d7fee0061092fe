package handoff

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/shape"
	"github.com/osci-render/osci-go/internal/testutil"
)

func TestNewDoubleBufferRejectsInvalidCapacity(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{0, -1} {
		db, err := NewDoubleBuffer(capacity)
		require.Error(t, err)
		assert.Nil(t, db)
		require.ErrorIs(t, err, ErrInvalidCapacity)
		assert.True(t, errors.IsCategory(err, errors.CategoryBuffer))
	}
}

func TestDoubleBufferNotifiesOncePerFullBuffer(t *testing.T) {
	t.Parallel()

	for capacity := 1; capacity <= 8; capacity++ {
		for writes := range 41 {
			t.Run(fmt.Sprintf("C=%d/N=%d", capacity, writes), func(t *testing.T) {
				db, err := NewDoubleBuffer(capacity)
				require.NoError(t, err)

				for i := range writes {
					db.Write(shape.Pt(float64(i), 0))
				}
				assert.Equal(t, writes/capacity, db.Pending())
			})
		}
	}
}

func TestDoubleBufferReadyBufferIsNotActive(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{1, 2, 5} {
		db, err := NewDoubleBuffer(capacity)
		require.NoError(t, err)

		for round := range 6 {
			for i := range capacity {
				db.Write(shape.Pt(float64(round), float64(i)))
			}
			db.WaitUntilFull()

			ready := db.GetBuffer()
			require.Len(t, ready, capacity)
			assert.NotSame(t, &db.buffers[db.active][0], &ready[0], "ready buffer aliases active buffer")
			for i, p := range ready {
				assert.Equal(t, shape.Pt(float64(round), float64(i)), p)
			}
		}
	}
}

func TestDoubleBufferBatchesInOrder(t *testing.T) {
	t.Parallel()

	db, err := NewDoubleBuffer(4)
	require.NoError(t, err)

	for range 4 {
		db.Write(shape.Point{X: 1, Y: 1})
	}
	db.WaitUntilFull()
	first := append([]shape.Point(nil), db.GetBuffer()...)

	for range 4 {
		db.Write(shape.Point{X: 2, Y: 2})
	}
	db.WaitUntilFull()
	second := append([]shape.Point(nil), db.GetBuffer()...)

	assert.Equal(t, []shape.Point{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}}, first)
	assert.Equal(t, []shape.Point{{X: 2, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 2}}, second)
}

// A held ready buffer survives exactly one buffer period of producer
// writes and is overwritten from the next write on.
func TestDoubleBufferOverwriteWindow(t *testing.T) {
	t.Parallel()

	const capacity = 4
	db, err := NewDoubleBuffer(capacity)
	require.NoError(t, err)

	for i := range capacity {
		db.Write(shape.Pt(1, float64(i)))
	}
	held := db.GetBuffer()
	want := []shape.Point{shape.Pt(1, 0), shape.Pt(1, 1), shape.Pt(1, 2), shape.Pt(1, 3)}

	for i := range capacity {
		db.Write(shape.Pt(2, float64(i)))
		assert.Equal(t, want, held, "held buffer changed after %d writes", i+1)
	}

	db.Write(shape.Pt(3, 0))
	assert.Equal(t, shape.Pt(3, 0), held[0])
	assert.Equal(t, want[1:], held[1:])
}

// Producer and consumer on separate goroutines, stepped through channel
// checkpoints: the ready buffer never aliases the one being written, stays
// intact for one full producer period and is overwritten by the next write.
func TestDoubleBufferProducerConsumerGoroutines(t *testing.T) {
	t.Parallel()

	const capacity = 8
	db, err := NewDoubleBuffer(capacity)
	require.NoError(t, err)

	var (
		firstFull  = make(chan struct{})
		secondFull = make(chan struct{})
		overwrote  = make(chan struct{})
		resume1    = make(chan struct{})
		resume2    = make(chan struct{})
		quit       = make(chan struct{})
		done       = make(chan struct{})
	)
	t.Cleanup(func() {
		close(quit)
		<-done
	})

	go func() {
		defer close(done)
		step := func(signal chan struct{}, resume chan struct{}) bool {
			close(signal)
			select {
			case <-resume:
				return true
			case <-quit:
				return false
			}
		}

		for i := range capacity {
			db.Write(shape.Pt(1, float64(i)))
		}
		if !step(firstFull, resume1) {
			return
		}
		for i := range capacity {
			db.Write(shape.Pt(2, float64(i)))
		}
		if !step(secondFull, resume2) {
			return
		}
		db.Write(shape.Pt(3, 0))
		close(overwrote)
	}()

	first := make([]shape.Point, capacity)
	second := make([]shape.Point, capacity)
	for i := range capacity {
		first[i] = shape.Pt(1, float64(i))
		second[i] = shape.Pt(2, float64(i))
	}

	db.WaitUntilFull()
	testutil.WaitForChannel(t, firstFull, testutil.ShortTestTimeout, "producer never filled the first buffer")
	held := db.GetBuffer()
	assert.Equal(t, first, held)

	db.mu.Lock()
	writing := db.buffers[db.active]
	db.mu.Unlock()
	assert.NotSame(t, &writing[0], &held[0], "ready buffer aliases the active buffer")

	close(resume1)
	db.WaitUntilFull()
	testutil.WaitForChannel(t, secondFull, testutil.ShortTestTimeout, "producer never filled the second buffer")
	assert.Equal(t, first, held, "held buffer changed within one producer period")

	next := db.GetBuffer()
	assert.Equal(t, second, next)
	assert.NotSame(t, &held[0], &next[0])

	close(resume2)
	testutil.WaitForChannel(t, overwrote, testutil.ShortTestTimeout, "producer never wrote past the window")
	assert.Equal(t, shape.Pt(3, 0), held[0])
	assert.Equal(t, first[1:], held[1:])
	assert.Zero(t, db.Pending())
}

func TestDoubleBufferForceNotifyAndDrain(t *testing.T) {
	t.Parallel()

	db, err := NewDoubleBuffer(3)
	require.NoError(t, err)

	db.ForceNotify()
	db.ForceNotify()
	assert.Equal(t, 2, db.Pending())

	// returns immediately thanks to the forced notification
	db.WaitUntilFull()
	assert.Equal(t, 1, db.drainNotifications())
	assert.Equal(t, 0, db.Pending())
	assert.Equal(t, 3, db.Capacity())
}

func TestDoubleBufferCapacityOneSwapsEveryWrite(t *testing.T) {
	t.Parallel()

	db, err := NewDoubleBuffer(1)
	require.NoError(t, err)

	db.Write(shape.Pt(1, 1))
	assert.Equal(t, []shape.Point{shape.Pt(1, 1)}, db.GetBuffer())
	db.Write(shape.Pt(2, 2))
	assert.Equal(t, []shape.Point{shape.Pt(2, 2)}, db.GetBuffer())
	assert.Equal(t, 2, db.Pending())
}

func BenchmarkDoubleBufferWrite(b *testing.B) {
	db, err := NewDoubleBuffer(512)
	require.NoError(b, err)
	p := shape.Point{X: 0.5, Y: -0.5}

	b.ReportAllocs()
	for b.Loop() {
		db.Write(p)
		if db.offset == 0 {
			db.drainNotifications()
		}
	}
}
