package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubmitRunsInOrder(t *testing.T) {
	q := New(8)
	defer q.Close()

	var (
		mu    sync.Mutex
		order []int
	)
	var dones []<-chan error
	for i := 0; i < 20; i++ {
		i := i
		done, err := q.Enqueue(context.Background(), "append", func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
		dones = append(dones, done)
	}
	for _, d := range dones {
		require.NoError(t, <-d)
	}

	expected := make([]int, 20)
	for i := range expected {
		expected[i] = i
	}
	assert.Equal(t, expected, order)
}

func TestTasksNeverOverlap(t *testing.T) {
	q := New(4)
	defer q.Close()

	var running, maxRunning int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Submit(context.Background(), "overlap", func(context.Context) error {
				n := atomic.AddInt32(&running, 1)
				for {
					m := atomic.LoadInt32(&maxRunning)
					if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
}

func TestSubmitReturnsTaskError(t *testing.T) {
	q := New(1)
	defer q.Close()

	boom := errors.New("boom")
	err := q.Submit(context.Background(), "fail", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestPanicBecomesError(t *testing.T) {
	q := New(1)
	defer q.Close()

	err := q.Submit(context.Background(), "panic", func(context.Context) error { panic("bad entry") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad entry")

	// worker survives
	assert.NoError(t, q.Submit(context.Background(), "after", func(context.Context) error { return nil }))
}

func TestEnqueueBlocksWhenFull(t *testing.T) {
	q := New(1)
	defer q.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	_, err := q.Enqueue(context.Background(), "hold", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started

	// fills the single slot
	_, err = q.Enqueue(context.Background(), "pending", func(context.Context) error { return nil })
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = q.Enqueue(ctx, "overflow", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestCancelledTaskIsSkipped(t *testing.T) {
	q := New(2)
	defer q.Close()

	release := make(chan struct{})
	_, err := q.Enqueue(context.Background(), "hold", func(context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	done, err := q.Enqueue(ctx, "skipped", func(context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)
	cancel()
	close(release)

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, ran.Load())
}

func TestCloseDrainsAndRejects(t *testing.T) {
	q := New(4)

	var count int32
	for i := 0; i < 4; i++ {
		_, err := q.Enqueue(context.Background(), "count", func(context.Context) error {
			atomic.AddInt32(&count, 1)
			return nil
		})
		require.NoError(t, err)
	}
	q.Close()
	q.Close()

	assert.Equal(t, int32(4), atomic.LoadInt32(&count))
	assert.ErrorIs(t, q.Submit(context.Background(), "late", func(context.Context) error { return nil }), ErrClosed)
}
