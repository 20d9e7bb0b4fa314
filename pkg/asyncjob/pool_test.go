package asyncjob_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitpulse/pkg/asyncjob"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	t.Parallel()

	const size = 2

	pool := asyncjob.NewPool(size)
	assert.Equal(t, size, pool.Size())

	var (
		running atomic.Int32
		peak    atomic.Int32
		entries atomic.Int32
		release = make(chan struct{})
		entered sync.WaitGroup
	)

	entered.Add(size)

	for range 6 {
		err := pool.Go(func() {
			now := running.Add(1)
			for {
				old := peak.Load()
				if now <= old || peak.CompareAndSwap(old, now) {
					break
				}
			}

			if entries.Add(1) <= size {
				entered.Done()
			}

			<-release
			running.Add(-1)
		})
		require.NoError(t, err)
	}

	entered.Wait()
	close(release)
	pool.Stop()

	assert.Equal(t, int32(size), peak.Load())
	assert.Zero(t, running.Load())
}

func TestPoolStopRejectsNewTasks(t *testing.T) {
	t.Parallel()

	pool := asyncjob.NewPool(1)

	var ran atomic.Bool

	require.NoError(t, pool.Go(func() { ran.Store(true) }))
	pool.Stop()

	assert.True(t, ran.Load(), "queued tasks finish before Stop returns")
	require.ErrorIs(t, pool.Go(func() {}), asyncjob.ErrPoolStopped)
}

func TestPoolDefaultSize(t *testing.T) {
	t.Parallel()

	pool := asyncjob.NewPool(0)
	defer pool.Stop()

	assert.Equal(t, asyncjob.DefaultWorkers(), pool.Size())
	assert.GreaterOrEqual(t, pool.Size(), 1)
}

func TestInlineRunsSynchronously(t *testing.T) {
	t.Parallel()

	ran := false

	require.NoError(t, asyncjob.Inline{}.Go(func() { ran = true }))
	assert.True(t, ran)
}
