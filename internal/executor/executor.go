// Package executor implements the bounded dynamic worker pool.
// See doc.go for complete package documentation.
package executor

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the pool lifecycle state. Transitions are one-way:
// Run → Stopping → Stopped.
type State int32

const (
	// StateRun accepts and executes tasks.
	StateRun State = iota

	// StateStopping rejects new tasks while draining the queue.
	StateStopping

	// StateStopped is terminal: all workers have exited.
	StateStopped
)

// String returns the state name for logs and stats.
func (s State) String() string {
	switch s {
	case StateRun:
		return "run"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Executor is a dynamically sized worker pool with a bounded FIFO task
// queue. See the package documentation for the lifecycle and queueing
// rules.
//
// All methods are safe for concurrent use.
type Executor struct {
	name     string
	log      *zap.Logger
	low      int
	high     int
	idleTime time.Duration

	// tasks is the bounded FIFO. Its buffer is the queue: a full buffer is
	// a full queue, and receive order is submission order.
	tasks chan func()

	// stopping is closed by Stop to wake every idle worker at once.
	stopping chan struct{}

	// stopped is closed by the last worker to exit; Stop(await=true)
	// blocks on it.
	stopped chan struct{}

	mu      sync.Mutex
	state   State
	workers int
}

// New creates a pool named name with the given queue capacity, worker
// watermarks, and idle timeout, and starts lowWatermark workers immediately.
//
// The configuration must satisfy queueCap ≥ 1, 1 ≤ lowWatermark ≤
// highWatermark, and idleTime > 0; anything else is a construction error.
// A nil logger is replaced with a no-op logger.
func New(name string, queueCap, lowWatermark, highWatermark int, idleTime time.Duration, log *zap.Logger) (*Executor, error) {
	if queueCap < 1 {
		return nil, fmt.Errorf("executor %q: queue capacity must be at least 1, got %d", name, queueCap)
	}
	if lowWatermark < 1 {
		return nil, fmt.Errorf("executor %q: low watermark must be at least 1, got %d", name, lowWatermark)
	}
	if highWatermark < lowWatermark {
		return nil, fmt.Errorf("executor %q: high watermark %d below low watermark %d", name, highWatermark, lowWatermark)
	}
	if idleTime <= 0 {
		return nil, fmt.Errorf("executor %q: idle time must be positive, got %v", name, idleTime)
	}
	if log == nil {
		log = zap.NewNop()
	}

	e := &Executor{
		name:     name,
		log:      log,
		low:      lowWatermark,
		high:     highWatermark,
		idleTime: idleTime,
		tasks:    make(chan func(), queueCap),
		stopping: make(chan struct{}),
		stopped:  make(chan struct{}),
		state:    StateRun,
	}

	e.mu.Lock()
	for i := 0; i < e.low; i++ {
		e.workers++
		go e.work()
	}
	e.mu.Unlock()

	return e, nil
}

// Execute schedules task for execution and returns true iff it was
// accepted. A submission is rejected — without blocking — when the pool is
// not running or the queue is full.
//
// While tasks are pending and the pool is below its high watermark,
// submission also grows the pool.
func (e *Executor) Execute(task func()) bool {
	if task == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRun {
		return false
	}

	select {
	case e.tasks <- task:
	default:
		return false // queue full: backpressure to the caller
	}

	for e.workers < e.high && len(e.tasks) > 0 {
		e.workers++
		go e.work()
	}

	return true
}

// Stop moves the pool to Stopping: no further submission succeeds, idle
// workers wake immediately, and the queue is drained before the pool
// becomes Stopped. With await=true the call returns only after the last
// worker has exited.
//
// Stop is idempotent; calling it on a pool that is already Stopping or
// Stopped only honors the await flag.
func (e *Executor) Stop(await bool) {
	e.mu.Lock()
	if e.state == StateRun {
		e.state = StateStopping
		close(e.stopping)
		if e.workers == 0 {
			e.state = StateStopped
			close(e.stopped)
		}
	}
	e.mu.Unlock()

	if await {
		<-e.stopped
	}
}

// State returns the current lifecycle state.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Workers returns the current worker count.
func (e *Executor) Workers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workers
}

// PoolStats is a point-in-time snapshot of the pool for monitoring.
type PoolStats struct {
	Name          string
	State         string
	Workers       int
	Queued        int
	QueueCap      int
	LowWatermark  int
	HighWatermark int
}

// Stats returns a snapshot of the pool's configuration and current load.
func (e *Executor) Stats() PoolStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return PoolStats{
		Name:          e.name,
		State:         e.state.String(),
		Workers:       e.workers,
		Queued:        len(e.tasks),
		QueueCap:      cap(e.tasks),
		LowWatermark:  e.low,
		HighWatermark: e.high,
	}
}

// work is the loop every pool worker runs.
//
// While the pool is running the worker waits up to idleTime for a task; a
// timeout is the signal to exit voluntarily, but only while that leaves the
// pool at or above its low watermark. Once the pool stops the worker drains
// the queue without waiting and exits when it finds the queue empty.
func (e *Executor) work() {
	for {
		if e.State() != StateRun {
			// Stopping: drain whatever is queued, then exit.
			select {
			case task := <-e.tasks:
				e.invoke(task)
				continue
			default:
			}
			e.exit()
			return
		}

		select {
		case task := <-e.tasks:
			e.invoke(task)

		case <-e.stopping:
			// Fall through to the drain path above.

		case <-time.After(e.idleTime):
			e.mu.Lock()
			if e.state == StateRun && e.workers > e.low {
				e.workers--
				e.mu.Unlock()
				return
			}
			// At the floor: keep waiting.
			e.mu.Unlock()
		}
	}
}

// invoke runs one task, containing any panic so the worker survives.
func (e *Executor) invoke(task func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("task panic",
				zap.String("pool", e.name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	task()
}

// exit retires one worker during shutdown. The last worker out flips the
// pool to Stopped and releases anyone blocked in Stop(await=true).
func (e *Executor) exit() {
	e.mu.Lock()
	e.workers--
	last := e.workers == 0 && e.state == StateStopping
	if last {
		e.state = StateStopped
	}
	e.mu.Unlock()

	if last {
		close(e.stopped)
	}
}
