// Package parallel runs independent machine solves on a bounded set of
// goroutines. A single solve is always sequential; concurrency exists only
// between machines.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrPoolShutdown is returned when trying to submit tasks to a shutdown pool.
var ErrPoolShutdown = errors.New("worker pool has been shutdown")

// WorkerPool manages a fixed number of goroutines fed from a buffered task
// channel. Submit blocks once the buffer is full, which bounds the number of
// machines held in flight.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If maxWorkers is 0 or negative, it defaults to the number of CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}

	return pool
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int {
	return wp.maxWorkers
}

// worker runs tasks until shutdown. Tasks still buffered at shutdown are dropped.
func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()

	for {
		select {
		case <-wp.shutdownChan:
			return
		default:
		}

		select {
		case task := <-wp.taskChan:
			if task != nil {
				task()
			}
		case <-wp.shutdownChan:
			return
		}
	}
}

// Submit queues a task. It blocks while the queue is full and fails with the
// context error or ErrPoolShutdown.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	select {
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	}
}

// ForEach runs fn(i) for every i in [0, n) on the pool and waits for every
// submitted call to return. When submission stops early the error is returned
// and the indices from the failed one onward are never run. ForEach must not
// race with Shutdown.
func (wp *WorkerPool) ForEach(ctx context.Context, n int, fn func(i int)) error {
	var wg sync.WaitGroup
	var err error
	for i := 0; i < n; i++ {
		wg.Add(1)
		if err = wp.Submit(ctx, func() {
			defer wg.Done()
			fn(i)
		}); err != nil {
			wg.Done()
			break
		}
	}
	wg.Wait()
	return err
}

// Shutdown stops the workers after their current task and waits for them.
// The task channel is never closed, so concurrent Submit calls cannot panic.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.shutdownChan)
		wp.workerWg.Wait()
	})
}
