package handoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphoreCounts(t *testing.T) {
	t.Parallel()

	s := NewSemaphore(2)
	assert.Equal(t, 2, s.Available())

	s.Acquire()
	require.True(t, s.TryAcquire())
	assert.False(t, s.TryAcquire())
	assert.Equal(t, 0, s.Available())

	s.Release()
	s.Release()
	s.Release()
	assert.Equal(t, 3, s.Available())

	assert.Equal(t, 0, NewSemaphore(-4).Available())
}

func TestSemaphoreAcquireBlocksUntilRelease(t *testing.T) {
	t.Parallel()

	s := NewSemaphore(0)
	acquired := make(chan struct{})
	go func() {
		s.Acquire()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire returned without a permit")
	case <-time.After(20 * time.Millisecond):
	}

	s.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after Release")
	}
	assert.Equal(t, 0, s.Available())
}

func TestSemaphoreReleaseWakesOneWaiterPerPermit(t *testing.T) {
	t.Parallel()

	s := NewSemaphore(0)
	const waiters = 4
	woke := make(chan struct{}, waiters)
	for range waiters {
		go func() {
			s.Acquire()
			woke <- struct{}{}
		}()
	}

	for i := range waiters {
		s.Release()
		select {
		case <-woke:
		case <-time.After(time.Second):
			t.Fatalf("waiter %d not woken", i)
		}
	}
	assert.Equal(t, 0, s.Available())
	assert.Empty(t, woke)
}
