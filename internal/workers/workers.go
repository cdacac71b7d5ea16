package workers

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync"
)

// EnvOverride names the environment variable that pins the worker count.
const EnvOverride = "UPLOAD_WORKERS"

// Count returns a worker count for a task type. It follows GOMAXPROCS, so
// container CPU limits are respected.
//
// multiplier scales the available CPUs: 1.0 for CPU-bound work, 2.0 for
// work that mostly waits on disk or network. limit caps the result; 0 means
// no cap. UPLOAD_WORKERS overrides the calculation but not the cap.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// Pool runs submitted jobs on a fixed number of goroutines.
type Pool[T any] struct {
	jobs   chan T
	handle func(context.Context, T)
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewPool starts size workers calling handle for each job. The context
// passed to handle is cancelled by Stop or when ctx is done.
func NewPool[T any](ctx context.Context, size, queue int, handle func(context.Context, T)) *Pool[T] {
	if size < 1 {
		size = 1
	}
	if queue < 0 {
		queue = 0
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool[T]{
		jobs:   make(chan T, queue),
		handle: handle,
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
	return p
}

func (p *Pool[T]) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				continue
			}
			p.handle(ctx, job)
		}
	}
}

// Submit queues a job. It blocks while the queue is full and reports false
// once the pool is stopped.
func (p *Pool[T]) Submit(ctx context.Context, job T) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	case <-ctx.Done():
		return false
	case <-p.ctx.Done():
		return false
	}
}

// Close stops accepting jobs and waits for queued jobs to finish.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.cancel()
}

// Stop cancels running jobs, drops queued ones and waits for workers to exit.
func (p *Pool[T]) Stop() {
	p.cancel()
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
