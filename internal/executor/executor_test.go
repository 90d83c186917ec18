package executor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew verifies construction: the pool comes up running with the low
// watermark of workers, and bad configurations are rejected outright.
func TestNew(t *testing.T) {
	t.Run("starts the low watermark of workers", func(t *testing.T) {
		pool, err := New("test", 10, 2, 4, 50*time.Millisecond, nil)
		require.NoError(t, err)
		defer pool.Stop(true)

		assert.Equal(t, StateRun, pool.State())
		assert.Equal(t, 2, pool.Workers())

		stats := pool.Stats()
		assert.Equal(t, "test", stats.Name)
		assert.Equal(t, "run", stats.State)
		assert.Equal(t, 10, stats.QueueCap)
		assert.Equal(t, 0, stats.Queued)
	})

	t.Run("rejects bad configurations", func(t *testing.T) {
		_, err := New("bad", 0, 1, 1, time.Millisecond, nil)
		assert.Error(t, err, "zero queue capacity accepted")

		_, err = New("bad", 1, 0, 1, time.Millisecond, nil)
		assert.Error(t, err, "zero low watermark accepted")

		_, err = New("bad", 1, 2, 1, time.Millisecond, nil)
		assert.Error(t, err, "high watermark below low accepted")

		_, err = New("bad", 1, 1, 1, 0, nil)
		assert.Error(t, err, "zero idle time accepted")
	})
}

// TestExecuteRunsTasks verifies the basic submit-and-run path.
func TestExecuteRunsTasks(t *testing.T) {
	pool, err := New("test", 20, 1, 2, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer pool.Stop(true)

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		ok := pool.Execute(func() {
			defer wg.Done()
			ran.Add(1)
		})
		require.True(t, ok, "submission %d rejected", i)
	}
	wg.Wait()

	assert.Equal(t, int32(20), ran.Load())
}

// TestExecuteRejectsNil verifies that a nil task is refused before it can
// reach a worker.
func TestExecuteRejectsNil(t *testing.T) {
	pool, err := New("test", 10, 1, 1, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer pool.Stop(true)

	assert.False(t, pool.Execute(nil))
}

// TestQueueRejection reproduces the pressure scenario: one worker blocked on
// a slow task, a queue of two, and a fourth submission that must bounce
// immediately. When the slow task finishes, the two queued tasks must run in
// submission order.
func TestQueueRejection(t *testing.T) {
	pool, err := New("test", 2, 1, 1, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer pool.Stop(true)

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, pool.Execute(func() {
		close(started)
		<-release
	}))
	<-started // the single worker is now occupied

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 1; i <= 2; i++ {
		i := i
		wg.Add(1)
		require.True(t, pool.Execute(func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}), "queued submission %d rejected", i)
	}

	// Queue is full: the next submission must fail without blocking.
	assert.False(t, pool.Execute(func() {}), "submission past the queue capacity accepted")

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, order, "queued tasks ran out of order")
}

// TestFIFOWithSingleWorker verifies global FIFO: with one worker, completion
// order equals submission order.
func TestFIFOWithSingleWorker(t *testing.T) {
	pool, err := New("test", 100, 1, 1, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer pool.Stop(true)

	// Plug the worker so every subsequent submission queues.
	gate := make(chan struct{})
	require.True(t, pool.Execute(func() { <-gate }))

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		require.True(t, pool.Execute(func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}

	close(gate)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 50)
	for i, got := range order {
		assert.Equal(t, i, got, "position %d", i)
	}
}

// TestPoolGrowsUnderLoad verifies that pending work pulls the worker count
// up toward the high watermark, never past it.
func TestPoolGrowsUnderLoad(t *testing.T) {
	pool, err := New("test", 100, 2, 4, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer pool.Stop(true)

	release := make(chan struct{})
	var running atomic.Int32
	for i := 0; i < 50; i++ {
		require.True(t, pool.Execute(func() {
			running.Add(1)
			<-release
			running.Add(-1)
		}))
	}

	// With 50 blocked tasks pending, the pool should reach 4 workers.
	assert.Eventually(t, func() bool { return running.Load() == 4 }, time.Second, 5*time.Millisecond,
		"pool did not grow to the high watermark")
	assert.Equal(t, 4, pool.Workers(), "worker count past the high watermark")

	close(release)
}

// TestIdleShrink verifies E-P4: after a burst, idle workers exit one
// timeout at a time until only the low watermark remains — and never fewer.
func TestIdleShrink(t *testing.T) {
	const idle = 30 * time.Millisecond
	pool, err := New("test", 100, 1, 4, idle, nil)
	require.NoError(t, err)
	defer pool.Stop(true)

	// Burst to grow the pool.
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		require.True(t, pool.Execute(func() {
			defer wg.Done()
			time.Sleep(2 * time.Millisecond)
		}))
	}
	wg.Wait()
	require.Greater(t, pool.Workers(), 1, "pool never grew during the burst")

	// Idle convergence: allow several idle windows for the excess to drain.
	assert.Eventually(t, func() bool { return pool.Workers() == 1 },
		20*idle, idle/3, "pool did not shrink to the low watermark")

	// And it must hold the floor from then on.
	time.Sleep(4 * idle)
	assert.Equal(t, 1, pool.Workers(), "pool dropped below the low watermark")
	assert.Equal(t, StateRun, pool.State())
}

// TestStopDrainsQueue verifies the drain scenario: every accepted task runs
// exactly once before Stop(await=true) returns, after which the pool is
// Stopped with zero workers and rejects everything.
func TestStopDrainsQueue(t *testing.T) {
	pool, err := New("test", 100, 2, 4, 50*time.Millisecond, nil)
	require.NoError(t, err)

	var ran atomic.Int32
	for i := 0; i < 50; i++ {
		require.True(t, pool.Execute(func() {
			time.Sleep(time.Millisecond)
			ran.Add(1)
		}), "submission %d rejected", i)
	}

	pool.Stop(true)

	assert.Equal(t, int32(50), ran.Load(), "tasks lost or duplicated across shutdown")
	assert.Equal(t, StateStopped, pool.State())
	assert.Equal(t, 0, pool.Workers())
	assert.False(t, pool.Execute(func() {}), "Execute accepted after Stop")
}

// TestStopWakesSleepingWorkers verifies the stop-side wake discipline: a
// fully idle pool — every worker parked in its timed wait — stops promptly,
// well inside one idle window.
func TestStopWakesSleepingWorkers(t *testing.T) {
	pool, err := New("test", 10, 4, 4, time.Minute, nil)
	require.NoError(t, err)
	require.Equal(t, 4, pool.Workers())

	done := make(chan struct{})
	go func() {
		pool.Stop(true)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop(await) hung: sleeping workers were not woken")
	}
	assert.Equal(t, StateStopped, pool.State())
}

// TestStopIdempotent verifies that repeated Stop calls, in any mode, are
// harmless no-ops once the pool has left Run.
func TestStopIdempotent(t *testing.T) {
	pool, err := New("test", 10, 1, 2, 50*time.Millisecond, nil)
	require.NoError(t, err)

	pool.Stop(false)
	pool.Stop(true) // must still await the drain
	pool.Stop(true) // and remain callable after Stopped
	assert.Equal(t, StateStopped, pool.State())
	assert.Equal(t, 0, pool.Workers())
}

// TestTaskPanicDoesNotKillWorker verifies the failure model: a panicking
// task is contained, and the same pool keeps executing later tasks.
func TestTaskPanicDoesNotKillWorker(t *testing.T) {
	pool, err := New("test", 10, 1, 1, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer pool.Stop(true)

	require.True(t, pool.Execute(func() { panic("task fault") }))

	done := make(chan struct{})
	require.True(t, pool.Execute(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died with the panicking task")
	}
	assert.Equal(t, StateRun, pool.State())
}

// TestConcurrentSubmitters hammers Execute from many goroutines while the
// pool churns; every acceptance must translate into exactly one execution.
func TestConcurrentSubmitters(t *testing.T) {
	pool, err := New("test", 1000, 2, 8, 50*time.Millisecond, nil)
	require.NoError(t, err)

	var accepted, ran atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if pool.Execute(func() { ran.Add(1) }) {
					accepted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	pool.Stop(true)
	assert.Equal(t, accepted.Load(), ran.Load(), "accepted and executed counts diverge")
}
