package engine

import (
	"context"
	"errors"
)

// ErrQueueClosed is returned by Submit after Close.
var ErrQueueClosed = errors.New("task queue closed")

// TaskQueue runs submitted tasks one at a time on a single worker, in
// submission order. Bulk publish goes through it so two overlapping
// publish batches can never interleave calls against the backend.
type TaskQueue struct {
	tasks chan queuedTask
	stop  chan struct{}
	done  chan struct{}
}

type queuedTask struct {
	ctx context.Context
	fn  func(context.Context) error
	res chan error
}

// NewTaskQueue starts the worker.
func NewTaskQueue() *TaskQueue {
	q := &TaskQueue{
		tasks: make(chan queuedTask),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *TaskQueue) run() {
	defer close(q.done)
	for {
		select {
		case t := <-q.tasks:
			t.res <- t.fn(t.ctx)
		case <-q.stop:
			return
		}
	}
}

// Submit blocks until the task has run and returns its error.
func (q *TaskQueue) Submit(ctx context.Context, fn func(context.Context) error) error {
	t := queuedTask{ctx: ctx, fn: fn, res: make(chan error, 1)}
	select {
	case q.tasks <- t:
		return <-t.res
	case <-q.stop:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker after the task in flight, if any, finishes.
func (q *TaskQueue) Close() {
	close(q.stop)
	<-q.done
}
