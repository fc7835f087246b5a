// Package workerpool provides a bounded goroutine pool with backpressure,
// used to fan image uploads out to object storage.
//
//	pool := workerpool.New(4)
//	defer pool.Shutdown()
//
//	g := pool.Group(ctx)
//	for i, fh := range files {
//	    g.Go(func(ctx context.Context) error { return upload(ctx, i, fh) })
//	}
//	if err := g.Wait(); err != nil { ... }
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolFull is returned by Submit when all workers are busy and the task
// queue is at capacity.
var ErrPoolFull = errors.New("workerpool: pool is full")

// ErrPoolClosed is returned by Submit after Shutdown has been called.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Pool is a bounded goroutine pool.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex // guards closed and sends on tasks
	closed bool
}

// New creates a Pool with size workers (at least one).
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	p := &Pool{tasks: make(chan func(), size*2)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues task without blocking. Returns ErrPoolFull when the queue
// is at capacity and ErrPoolClosed after Shutdown.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until the task is queued, ctx is done or the pool is
// closed.
func (p *Pool) SubmitWait(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks, runs what is queued and waits for the
// workers to exit. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		safeRun(task)
	}
}

func safeRun(task func()) {
	defer func() { recover() }() //nolint:errcheck
	task()
}

// ─── Group ────────────────────────────────────────────────────────────────────

// Group runs related tasks on a pool and collects their errors.
type Group struct {
	p    *Pool
	ctx  context.Context
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

// Group starts a task group bound to ctx.
func (p *Pool) Group(ctx context.Context) *Group {
	return &Group{p: p, ctx: ctx}
}

// Go schedules fn, blocking while the pool queue is full. A panic in fn is
// reported as its error.
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.wg.Add(1)
	err := g.p.SubmitWait(g.ctx, func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				g.record(fmt.Errorf("workerpool: task panicked: %v", r))
			}
		}()
		g.record(fn(g.ctx))
	})
	if err != nil {
		g.wg.Done()
		g.record(err)
	}
}

func (g *Group) record(err error) {
	if err == nil {
		return
	}
	g.mu.Lock()
	g.errs = append(g.errs, err)
	g.mu.Unlock()
}

// Wait blocks until every task has finished and joins their errors.
func (g *Group) Wait() error {
	g.wg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
