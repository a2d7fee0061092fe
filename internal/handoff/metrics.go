package handoff

import "time"

// MetricsRecorder receives worker telemetry. Implementations must be safe
// for concurrent use; none of these are called from Write.
type MetricsRecorder interface {
	RecordBatch(worker string, size int, duration time.Duration)
	RecordTaskError(worker, kind string)
	RecordBacklog(worker string, pending int)
	SetWorkerState(worker string, state State)
	SetCapacity(worker string, capacity int)
	SetActiveWorkers(count int)
}

// Task error kinds passed to RecordTaskError
const (
	TaskErrorReturned = "error"
	TaskErrorPanic    = "panic"
)

type noopMetrics struct{}

func (noopMetrics) RecordBatch(string, int, time.Duration) {}
func (noopMetrics) RecordTaskError(string, string)         {}
func (noopMetrics) RecordBacklog(string, int)              {}
func (noopMetrics) SetWorkerState(string, State)           {}
func (noopMetrics) SetCapacity(string, int)                {}
func (noopMetrics) SetActiveWorkers(int)                   {}
