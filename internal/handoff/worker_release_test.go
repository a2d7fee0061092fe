//go:build !oscidebug

package handoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osci-render/osci-go/internal/shape"
)

func TestWorkerRunBeforePrepare(t *testing.T) {
	t.Parallel()

	task := newCollectTask(2)
	w := newTestWorker(t, "early", task)

	w.SetShouldBeRunning(true)
	assert.Equal(t, StateStopped, w.State())

	assert.NotPanics(t, func() { writeN(w, 5, shape.Pt(1, 1)) })
	stats := w.Stats()
	assert.Equal(t, uint64(5), stats.UnpreparedWrites)
	assert.Zero(t, stats.Pending)
	assert.Zero(t, stats.Capacity)

	// the deferred start happens on the first successful Prepare
	require.NoError(t, w.Prepare(48000, 2))
	assert.Equal(t, StateRunning, w.State())

	writeN(w, 2, shape.Pt(4, 4))
	assert.Equal(t, []shape.Point{shape.Pt(4, 4), shape.Pt(4, 4)}, task.next(t))
}
