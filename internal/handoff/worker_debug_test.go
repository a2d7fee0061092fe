//go:build oscidebug

package handoff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osci-render/osci-go/internal/shape"
)

func TestWorkerRunBeforePreparePanicsInDebugBuilds(t *testing.T) {
	t.Parallel()

	w := newTestWorker(t, "early", newCollectTask(2))
	w.SetShouldBeRunning(true)

	assert.PanicsWithValue(t, `handoff: write to worker "early" before Prepare`, func() {
		w.Write(shape.Pt(1, 1))
	})
}
