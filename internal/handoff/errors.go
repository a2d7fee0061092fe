package handoff

import "github.com/osci-render/osci-go/internal/errors"

// ComponentHandoff identifies errors raised by this package
const ComponentHandoff = "handoff"

var (
	// ErrInvalidCapacity is returned when a buffer capacity below one is requested
	ErrInvalidCapacity = errors.Newf("buffer capacity must be at least 1").
				Component(ComponentHandoff).
				Category(errors.CategoryBuffer).
				Build()

	// ErrNilTask is returned when a worker is created without a task
	ErrNilTask = errors.Newf("worker task is nil").
			Component(ComponentHandoff).
			Category(errors.CategoryValidation).
			Build()

	// ErrWorkerClosed is returned by control operations on a closed worker
	ErrWorkerClosed = errors.Newf("worker is closed").
			Component(ComponentHandoff).
			Category(errors.CategoryState).
			Build()

	// ErrWorkerExists is returned when registering a worker id twice
	ErrWorkerExists = errors.Newf("worker already registered").
			Component(ComponentHandoff).
			Category(errors.CategoryConflict).
			Build()

	// ErrWorkerNotFound is returned when unregistering an unknown worker id
	ErrWorkerNotFound = errors.Newf("worker not found").
				Component(ComponentHandoff).
				Category(errors.CategoryNotFound).
				Build()

	// ErrManagerClosed is returned when registering with a closed manager
	ErrManagerClosed = errors.Newf("worker manager is closed").
				Component(ComponentHandoff).
				Category(errors.CategoryState).
				Build()
)
