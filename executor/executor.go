// Package executor bridges blocking producer and resolution work onto a
// fixed-size worker pool so a slow upstream call never stalls the HTTP
// serving goroutines beyond the one request that is waiting on it.
package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"music-api-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// ErrSaturated is returned when every worker is busy and the queue is
// full. Callers should surface it as a retryable service-unavailable
// condition rather than waiting.
var ErrSaturated = errors.New("executor: worker pool saturated")

// Task is a unit of blocking work. Workers pass through the submitting
// caller's context so producers can honor its deadline.
type Task func(ctx context.Context) (any, error)

type result struct {
	value any
	err   error
}

type task struct {
	ctx context.Context
	fn  Task
	out chan result
}

// Executor is a bounded worker pool with a bounded submission queue.
type Executor struct {
	queue     chan *task
	workers   int
	inFlight  atomic.Int64
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New starts an executor with the given worker count and queue depth.
func New(workers, queueSize int) *Executor {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 16
	}

	e := &Executor{
		queue:   make(chan *task, queueSize),
		workers: workers,
	}
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	log.Infof("%s Started %d workers (queue depth: %d)", logcolors.LogExecutor, workers, queueSize)
	return e
}

func (e *Executor) worker(id int) {
	defer e.wg.Done()
	for t := range e.queue {
		// Skip work whose caller already gave up; the buffered result
		// channel means the send never blocks either way.
		if err := t.ctx.Err(); err != nil {
			t.out <- result{err: err}
			continue
		}

		e.inFlight.Add(1)
		value, err := t.fn(t.ctx)
		e.inFlight.Add(-1)
		t.out <- result{value: value, err: err}
	}
	log.Debugf("%s Worker %d stopped", logcolors.LogExecutor, id)
}

// Do submits fn and blocks until it completes or ctx is done. When all
// workers are busy and the queue is full it fails fast with
// ErrSaturated instead of queuing unboundedly. A context cancellation
// after submission abandons the join; the worker still runs fn to
// completion so any cache write it commits to is whole.
func (e *Executor) Do(ctx context.Context, fn Task) (any, error) {
	t := &task{ctx: ctx, fn: fn, out: make(chan result, 1)}

	select {
	case e.queue <- t:
	default:
		log.Warnf("%s Rejecting task: %d in flight, queue full", logcolors.LogExecutor, e.inFlight.Load())
		return nil, ErrSaturated
	}

	select {
	case r := <-t.out:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlight reports how many tasks are currently executing.
func (e *Executor) InFlight() int {
	return int(e.inFlight.Load())
}

// QueueDepth reports how many tasks are waiting for a worker.
func (e *Executor) QueueDepth() int {
	return len(e.queue)
}

// Workers reports the pool size.
func (e *Executor) Workers() int {
	return e.workers
}

// Close stops accepting work and waits for the workers to drain the
// queue. Do must not be called after Close.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		close(e.queue)
		e.wg.Wait()
		log.Infof("%s Worker pool stopped", logcolors.LogExecutor)
	})
}
