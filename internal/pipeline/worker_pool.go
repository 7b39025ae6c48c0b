package pipeline

import (
	"context"
	"sync"
)

// Task is one independent unit of work. It must always return a result, also
// when ctx ends under it.
type Task[T any] func(ctx context.Context) T

// WorkerPool runs submitted tasks on a fixed number of goroutines. Once ctx
// is done no further task is started; tasks already running finish and their
// results are still delivered.
type WorkerPool[T any] struct {
	workers   int
	tasks     chan Task[T]
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewWorkerPool[T any](workers, buffer int) *WorkerPool[T] {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &WorkerPool[T]{
		workers: workers,
		tasks:   make(chan Task[T], buffer),
	}
}

// Submit queues t. It returns false when ctx ended before a worker could
// take it.
func (p *WorkerPool[T]) Submit(ctx context.Context, t Task[T]) bool {
	if p == nil || t == nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case p.tasks <- t:
		return true
	}
}

func (p *WorkerPool[T]) Close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() { close(p.tasks) })
}

// Run starts the workers. The returned channel is closed after Close has
// been called and every started task has delivered its result.
func (p *WorkerPool[T]) Run(ctx context.Context) <-chan T {
	out := make(chan T, p.workers)

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t, ok := <-p.tasks:
					if !ok {
						return
					}
					if ctx.Err() != nil {
						return
					}
					out <- t(ctx)
				}
			}
		}()
	}

	go func() {
		p.wg.Wait()
		close(out)
	}()

	return out
}
