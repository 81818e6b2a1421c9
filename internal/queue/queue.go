// Package queue serializes index mutations through one worker goroutine.
package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	memexdebug "github.com/standardbeagle/memex-index/internal/debug"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("queue closed")

// Task is one mutation. It receives the context it was submitted with.
type Task func(ctx context.Context) error

type job struct {
	ctx  context.Context
	name string
	run  Task
	done chan error
}

// Queue runs submitted tasks strictly in submission order, one at a time. Its
// channel is bounded, so producers block once capacity tasks are pending.
type Queue struct {
	tasks chan job
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts the worker. capacity below 1 is treated as 1.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue{tasks: make(chan job, capacity)}
	q.wg.Add(1)
	go q.worker()
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.tasks {
		if err := j.ctx.Err(); err != nil {
			memexdebug.LogQueue("skipping %s: %v\n", j.name, err)
			j.done <- err
			continue
		}
		j.done <- runTask(j)
	}
}

func runTask(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			memexdebug.LogQueue("PANIC in %s: %v\n%s\n", j.name, r, debug.Stack())
			err = fmt.Errorf("task %s panicked: %v", j.name, r)
		}
	}()
	return j.run(j.ctx)
}

// Enqueue schedules fn and returns a channel that receives its result. It blocks
// while the queue is full, until ctx is done.
func (q *Queue) Enqueue(ctx context.Context, name string, fn Task) (<-chan error, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return nil, ErrClosed
	}

	j := job{ctx: ctx, name: name, run: fn, done: make(chan error, 1)}
	select {
	case q.tasks <- j:
		memexdebug.LogQueue("queued %s (%d pending)\n", name, len(q.tasks))
		return j.done, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Submit schedules fn and waits for it to finish. If ctx ends while fn is still
// waiting in the queue, the worker skips it.
func (q *Queue) Submit(ctx context.Context, name string, fn Task) error {
	done, err := q.Enqueue(ctx, name, fn)
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Close stops accepting tasks, runs the ones already queued and waits for the
// worker to exit. It is safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	q.wg.Wait()
}
