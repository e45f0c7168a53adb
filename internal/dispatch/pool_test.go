// internal/dispatch/pool_test.go
package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copies tracks live detached copies so tests can check for orphans.
type copies struct{ live atomic.Int32 }

func (c *copies) detach(src int) (int, func(), error) {
	if src < 0 {
		return 0, nil, errors.New("out of memory")
	}
	c.live.Add(1)
	var once sync.Once
	return src, func() { once.Do(func() { c.live.Add(-1) }) }, nil
}

type countObserver struct {
	mu       sync.Mutex
	rejected []error
	busy     int
}

func (o *countObserver) Rejected(err error) {
	o.mu.Lock()
	o.rejected = append(o.rejected, err)
	o.mu.Unlock()
}

func (o *countObserver) Busy(d int) {
	o.mu.Lock()
	o.busy += d
	o.mu.Unlock()
}

func newPool(t *testing.T, c *copies, depth int, opts ...Option[int]) *Pool[int] {
	t.Helper()
	p, err := New[int](Config{Workers: 2, QueueDepth: depth, EnqueueWait: 10 * time.Millisecond}, c.detach, opts...)
	require.NoError(t, err)
	return p
}

func TestNew_Validation(t *testing.T) {
	c := &copies{}
	_, err := New[int](Config{QueueDepth: 1, EnqueueWait: time.Millisecond}, c.detach)
	require.Error(t, err)
	_, err = New[int](Config{Workers: 1, EnqueueWait: time.Millisecond}, c.detach)
	require.Error(t, err)
	_, err = New[int](Config{Workers: 1, QueueDepth: 1}, c.detach)
	require.Error(t, err)
	_, err = New[int](Config{Workers: 1, QueueDepth: 1, EnqueueWait: time.Millisecond}, nil)
	require.Error(t, err)
}

func TestSubmit_ThirdRequestRejectedWhenWorkersBusy(t *testing.T) {
	c := &copies{}
	obs := &countObserver{}
	p := newPool(t, c, 2, WithObserver[int](obs))
	p.Start(context.Background())
	defer p.Stop(time.Second)

	block := make(chan struct{})
	var served atomic.Int32
	h := func(ctx context.Context, req int) {
		<-block
		served.Add(1)
	}

	require.NoError(t, p.Submit(1, h))
	require.NoError(t, p.Submit(2, h))

	err := p.Submit(3, h)
	require.ErrorIs(t, err, ErrAllWorkersBusy)

	// the rejected copy was released right away
	assert.Equal(t, int32(2), c.live.Load())

	close(block)
	require.Eventually(t, func() bool { return served.Load() == 2 && c.live.Load() == 0 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return p.Free() == 2 }, time.Second, time.Millisecond)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Len(t, obs.rejected, 1)
	assert.ErrorIs(t, obs.rejected[0], ErrAllWorkersBusy)
	assert.Equal(t, 0, obs.busy)
}

func TestSubmit_DetachFailure(t *testing.T) {
	c := &copies{}
	p := newPool(t, c, 2)
	p.Start(context.Background())
	defer p.Stop(time.Second)

	err := p.Submit(-1, func(context.Context, int) {})
	require.ErrorIs(t, err, ErrNoCopyAvailable)
	assert.Equal(t, 2, p.Free())
}

func TestSubmit_QueueFull(t *testing.T) {
	c := &copies{}
	p := newPool(t, c, 1)

	// tokens without running workers: nothing drains the queue
	p.fillTokens()

	h := func(context.Context, int) {}
	require.NoError(t, p.Submit(1, h))

	err := p.Submit(2, h)
	require.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, int32(1), c.live.Load())
	assert.Equal(t, 1, p.Free(), "token returned after queue-full")

	require.NoError(t, p.Stop(time.Second))
	assert.Equal(t, int32(0), c.live.Load(), "queued copy released on stop")
}

func TestSubmit_AfterStop(t *testing.T) {
	c := &copies{}
	p := newPool(t, c, 2)
	p.Start(context.Background())
	require.NoError(t, p.Stop(time.Second))

	err := p.Submit(1, func(context.Context, int) {})
	require.ErrorIs(t, err, ErrPoolStopped)
	assert.Equal(t, int32(0), c.live.Load())
}

func TestStop_ConcurrentSubmitsLeaveNoOrphans(t *testing.T) {
	for round := 0; round < 50; round++ {
		c := &copies{}
		p := newPool(t, c, 2)
		p.Start(context.Background())

		var (
			wg       sync.WaitGroup
			accepted atomic.Int32
			served   atomic.Int32
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for n := 0; n < 20; n++ {
					if p.Submit(i, func(context.Context, int) { served.Add(1) }) == nil {
						accepted.Add(1)
					}
				}
			}(i)
		}

		require.NoError(t, p.Stop(time.Second))
		wg.Wait()

		// every accepted copy was either served or released by the drain
		assert.Equal(t, int32(0), c.live.Load(), "round %d", round)
		assert.LessOrEqual(t, served.Load(), accepted.Load())
	}
}

func TestOnWorker(t *testing.T) {
	c := &copies{}
	p := newPool(t, c, 2)
	other := newPool(t, &copies{}, 2)
	p.Start(context.Background())
	defer p.Stop(time.Second)

	type seen struct {
		mine, theirs bool
		id           int
	}
	got := make(chan seen, 1)
	require.NoError(t, p.Submit(1, func(ctx context.Context, _ int) {
		got <- seen{mine: p.OnWorker(ctx), theirs: other.OnWorker(ctx), id: WorkerID(ctx)}
	}))

	select {
	case s := <-got:
		assert.True(t, s.mine)
		assert.False(t, s.theirs)
		assert.GreaterOrEqual(t, s.id, 0)
		assert.Less(t, s.id, 2)
	case <-time.After(time.Second):
		t.Fatal("handler did not run")
	}

	assert.False(t, p.OnWorker(context.Background()))
	assert.Equal(t, -1, WorkerID(context.Background()))
}

func TestWorkerServesSequentially(t *testing.T) {
	c := &copies{}
	p := newPool(t, c, 2)
	p.Start(context.Background())
	defer p.Stop(time.Second)

	var n atomic.Int32
	for i := 0; i < 10; i++ {
		require.Eventually(t, func() bool {
			return p.Submit(i, func(context.Context, int) { n.Add(1) }) == nil
		}, time.Second, time.Millisecond)
	}
	require.Eventually(t, func() bool { return n.Load() == 10 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(0), c.live.Load())
}
