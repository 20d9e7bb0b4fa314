package asyncjob

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrPoolStopped is returned by Pool.Go after Stop.
var ErrPoolStopped = errors.New("worker pool stopped")

// Executor runs tasks in the background. Go must not block on the task.
type Executor interface {
	Go(task func()) error
}

// defaultWorkerRatio is the percentage of CPU cores given to query workers.
const defaultWorkerRatio = 50

// DefaultWorkers returns the pool size used when none is configured.
func DefaultWorkers() int {
	return max(runtime.NumCPU()*defaultWorkerRatio/100, 1)
}

// Pool is a bounded executor shared by every slot. Submissions never block:
// each task gets its own goroutine that waits for one of size execution
// permits. Tasks from different slots are not ordered against each other.
type Pool struct {
	sem  *semaphore.Weighted
	size int

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewPool creates a pool running at most size tasks at once. A size of zero
// or less selects DefaultWorkers.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultWorkers()
	}

	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Size returns the number of concurrent execution permits.
func (p *Pool) Size() int {
	return p.size
}

// Go schedules task. The task runs locked to its OS thread, since libgit2
// keeps per-thread error state.
func (p *Pool) Go(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrPoolStopped
	}

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		// Background never cancels, so Acquire only returns once a permit is free.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)

		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		task()
	}()

	return nil
}

// Stop rejects new tasks and waits for queued and running ones to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	p.wg.Wait()
}

// Inline runs every task synchronously on the calling goroutine. It makes
// slot behavior deterministic in tests.
type Inline struct{}

// Go runs task before returning.
func (Inline) Go(task func()) error {
	task()

	return nil
}
