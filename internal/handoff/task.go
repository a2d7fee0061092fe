package handoff

import "github.com/osci-render/osci-go/internal/shape"

// Task is the consumer side of a Worker.
//
// Prepare is called whenever the audio configuration changes and returns
// the batch size the task wants. Run receives each full batch; the slice
// is only valid until Run returns and may be overwritten if Run takes longer
// than one batch period. Prepare and Run never overlap.
//
// A Task that also implements io.Closer is closed by Worker.Close.
type Task interface {
	Prepare(sampleRate float64, blockSize int) (capacity int, err error)
	Run(batch []shape.Point) error
}

// TaskFuncs adapts a pair of functions to Task
type TaskFuncs struct {
	PrepareFunc func(sampleRate float64, blockSize int) (int, error)
	RunFunc     func(batch []shape.Point) error
}

func (f TaskFuncs) Prepare(sampleRate float64, blockSize int) (int, error) {
	if f.PrepareFunc == nil {
		return blockSize, nil
	}
	return f.PrepareFunc(sampleRate, blockSize)
}

func (f TaskFuncs) Run(batch []shape.Point) error {
	if f.RunFunc == nil {
		return nil
	}
	return f.RunFunc(batch)
}
