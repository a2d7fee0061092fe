// Package handoff moves a continuous stream of shape.Point samples from a
// real-time producer to background consumers without blocking or
// allocating on the producer side.
//
// # Components
//
//   - Semaphore: counting doorbell, starts at zero.
//   - DoubleBuffer: two fixed-size buffers. The producer fills the active
//     one; when it is full the buffers swap and the doorbell rings once.
//   - Worker: owns a DoubleBuffer and a goroutine that waits on the
//     doorbell and hands each full buffer to a Task.
//   - Manager: the set of workers owned by the engine. It forwards the
//     audio configuration and running intent, and fans samples out.
//
// # Threading
//
// Write on DoubleBuffer, Worker and Manager is called from exactly one
// goroutine, the audio callback. It only touches atomics, the buffer slot
// and, once per buffer, a short mutex around the swap.
//
// Prepare, SetShouldBeRunning and Close are control operations. They may
// block, allocate and log, and must not be called from the audio callback.
//
// # Overwrite window
//
// A consumer receives the ready buffer by reference. Nothing stops the
// producer from filling the active buffer, swapping again and starting to
// overwrite the buffer the consumer still holds. The consumer therefore
// has exactly one buffer period (capacity samples) to finish with a batch.
// A consumer that is slower than that sees a mix of two batches. The
// doorbell count then exceeds one, which the Worker reports as backlog.
// There is no backpressure: the producer never waits for a consumer.
package handoff
