package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

type job struct {
	name string
	run  func(ctx context.Context) error
}

// workerPool runs jobs on a fixed number of goroutines. A job that panics is
// recovered and reported like one that returned an error.
type workerPool struct {
	workers  int
	jobQueue chan job
	wg       sync.WaitGroup
	onError  func(name string, err error)
}

func newWorkerPool(workers, queueSize int, onError func(name string, err error)) *workerPool {
	if workers < 1 {
		workers = 1
	}
	return &workerPool{
		workers:  workers,
		jobQueue: make(chan job, queueSize),
		onError:  onError,
	}
}

func (wp *workerPool) Start(ctx context.Context) {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx)
	}
}

// Submit blocks while the queue is full; jobs are never dropped.
func (wp *workerPool) Submit(j job) {
	wp.jobQueue <- j
}

// Wait closes the queue and returns once every submitted job has finished.
func (wp *workerPool) Wait() {
	close(wp.jobQueue)
	wp.wg.Wait()
}

func (wp *workerPool) worker(ctx context.Context) {
	defer wp.wg.Done()

	for j := range wp.jobQueue {
		if err := wp.execute(ctx, j); err != nil && wp.onError != nil {
			wp.onError(j.name, err)
		}
	}
}

func (wp *workerPool) execute(ctx context.Context, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("monitor: job panicked", "job", j.name, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return j.run(ctx)
}
