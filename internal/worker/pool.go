package worker

import (
	"context"
	"sync"
)

// Task is a unit of work producing one result
type Task[T any] func(ctx context.Context) T

type indexedTask[T any] struct {
	index int
	run   Task[T]
}

// Pool runs tasks on a fixed number of workers and returns results in
// submission order
type Pool[T any] struct {
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	queue   chan indexedTask[T]
	wg      sync.WaitGroup

	mu      sync.Mutex
	results []T
	next    int

	sendMu sync.RWMutex
	closed bool
}

// NewPool creates a pool bound to ctx; workers <= 0 means one worker
func NewPool[T any](ctx context.Context, workers int) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool[T]{
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
		queue:   make(chan indexedTask[T], workers*2),
	}
}

// Start launches the workers
func (p *Pool[T]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
}

func (p *Pool[T]) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			r := t.run(p.ctx)
			p.mu.Lock()
			p.results[t.index] = r
			p.mu.Unlock()
		}
	}
}

// Submit queues a task; it returns false once the pool is cancelled
func (p *Pool[T]) Submit(task Task[T]) bool {
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()
	if p.closed || p.ctx.Err() != nil {
		return false
	}

	p.mu.Lock()
	idx := p.next
	p.next++
	var zero T
	p.results = append(p.results, zero)
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.queue <- indexedTask[T]{index: idx, run: task}:
		return true
	}
}

// Wait closes the queue, waits for workers and returns results in
// submission order. Tasks skipped by cancellation leave zero values.
func (p *Pool[T]) Wait() []T {
	p.closeQueue()
	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]T, len(p.results))
	copy(out, p.results)
	return out
}

// Shutdown cancels in-flight work and waits for workers to exit
func (p *Pool[T]) Shutdown() {
	p.cancel()
	p.closeQueue()
	p.wg.Wait()
}

func (p *Pool[T]) closeQueue() {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
}
