package testutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitForChannel(t *testing.T) {
	t.Parallel()

	ch := make(chan struct{})
	go func() { close(ch) }()
	WaitForChannel(t, ch, ShortTestTimeout, "channel never closed")
}

func TestWaitForResult(t *testing.T) {
	t.Parallel()

	want := errors.New("stopped")
	ch := make(chan error, 1)
	go func() {
		time.Sleep(time.Millisecond)
		ch <- want
	}()

	assert.Equal(t, want, WaitForResult(t, ch, ShortTestTimeout, "no result"))
}
