// Package executor provides the dynamically sized worker pool that runs the
// server's connection-handling work units.
//
// # Lifecycle
//
// A pool moves through three states and never revisits one:
//
//	        construct
//	            │
//	            ▼
//	         ┌─────┐  Stop()  ┌──────────┐  queue drained &
//	         │ Run │─────────▶│ Stopping │   workers → 0
//	         └─────┘          └──────────┘────────────┐
//	                                                  ▼
//	                                             ┌─────────┐
//	                                             │ Stopped │ (terminal)
//	                                             └─────────┘
//
// In Run the pool accepts tasks and keeps between lowWatermark and
// highWatermark workers alive: submissions grow the pool toward the high
// watermark while tasks are pending, and workers that sit idle for idleTime
// exit voluntarily as long as that keeps the pool at or above the low
// watermark. In Stopping no submission is accepted, but every task already
// accepted is executed to completion before the pool becomes Stopped.
//
// # Queueing and backpressure
//
// The task queue is a bounded FIFO. Execute never blocks: when the pool is
// not running or the queue is full it returns false immediately, handing the
// caller the backpressure decision. Tasks are dequeued in submission order
// across the whole pool.
//
// The queue is a buffered channel, which is exactly the discipline the pool
// wants: a send readies one waiting worker, closing the stop channel readies
// all of them, and FIFO order comes with the primitive.
//
// # Failure model
//
// A panicking task is recovered and logged by the worker that ran it; the
// worker and the pool survive. Workers never hold the pool lock while
// running a task.
package executor
