package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osci-render/osci-go/internal/handoff"
)

func newHandoffMetrics(t *testing.T) *HandoffMetrics {
	t.Helper()
	m, err := NewHandoffMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestHandoffMetricsRecordBatch(t *testing.T) {
	t.Parallel()
	m := newHandoffMetrics(t)

	m.RecordBatch("scope", 800, 200*time.Microsecond)
	m.RecordBatch("scope", 800, 300*time.Microsecond)
	m.RecordBatch("recorder", 4096, time.Millisecond)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.batchesTotal.WithLabelValues("scope")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.batchesTotal.WithLabelValues("recorder")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.batchSize))
}

func TestHandoffMetricsTaskErrors(t *testing.T) {
	t.Parallel()
	m := newHandoffMetrics(t)

	m.RecordTaskError("mqtt", handoff.TaskErrorReturned)
	m.RecordTaskError("mqtt", handoff.TaskErrorPanic)
	m.RecordTaskError("mqtt", handoff.TaskErrorPanic)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.taskErrors.WithLabelValues("mqtt", "error")), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.taskErrors.WithLabelValues("mqtt", "panic")), 0)
}

func TestHandoffMetricsBacklog(t *testing.T) {
	t.Parallel()
	m := newHandoffMetrics(t)

	m.RecordBacklog("scope", 12)
	m.RecordBacklog("scope", 3)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.backlogTotal.WithLabelValues("scope")), 0)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.backlogPending.WithLabelValues("scope")), 0)
}

func TestHandoffMetricsWorkerStateIsExclusive(t *testing.T) {
	t.Parallel()
	m := newHandoffMetrics(t)

	m.SetWorkerState("recorder", handoff.StatePreparing)
	m.SetWorkerState("recorder", handoff.StateRunning)

	expected := `
# HELP oscigo_handoff_worker_state Current worker state (1 for the active state label)
# TYPE oscigo_handoff_worker_state gauge
oscigo_handoff_worker_state{state="preparing",worker="recorder"} 0
oscigo_handoff_worker_state{state="running",worker="recorder"} 1
oscigo_handoff_worker_state{state="stopped",worker="recorder"} 0
`
	require.NoError(t, testutil.CollectAndCompare(m.workerState, strings.NewReader(expected)))
}

func TestHandoffMetricsGauges(t *testing.T) {
	t.Parallel()
	m := newHandoffMetrics(t)

	m.SetCapacity("scope", 800)
	m.SetActiveWorkers(2)
	m.SetActiveWorkers(1)

	assert.InDelta(t, 800.0, testutil.ToFloat64(m.capacity.WithLabelValues("scope")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.activeWorkers), 0)
}

func TestHandoffMetricsDoubleRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewHandoffMetrics(registry)
	require.NoError(t, err)
	_, err = NewHandoffMetrics(registry)
	assert.Error(t, err)
}
